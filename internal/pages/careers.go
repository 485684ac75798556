package pages

import (
	"context"
	"fmt"

	"github.com/ternarybob/insider-e2e/internal/browser"
)

var (
	CompanyMenu = browser.XPath(`//a[contains(text(),"Company")]`)
	CareersLink = browser.XPath(`//a[contains(text(),"Careers")]`)
	Headings    = browser.XPath(`//h1 | //h2 | //h3 | //h4 | //h5 | //h6`)
)

// CareersPage reaches the careers page through the Company menu.
type CareersPage struct {
	*BasePage
}

func NewCareersPage(session browser.Session, opts ...Option) *CareersPage {
	return &CareersPage{BasePage: NewBasePage(session, opts...)}
}

// NavigateToCareers opens the Company menu, follows its Careers link and
// waits for the careers page header.
func (p *CareersPage) NavigateToCareers(ctx context.Context) error {
	if err := p.HoverAndClick(ctx, CompanyMenu); err != nil {
		return err
	}
	if err := p.HoverAndClick(ctx, CareersLink); err != nil {
		return err
	}
	p.WaitForHeader(ctx)
	return nil
}

// Headings returns the text of every h1-h6 currently on the page.
func (p *CareersPage) Headings(ctx context.Context) ([]string, error) {
	els, err := p.FindAll(ctx, Headings)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read heading text: %w", err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}
