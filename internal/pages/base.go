// Package pages holds the page objects for the Insider site: a BasePage
// with explicit-wait helpers and the careers and job listing pages built on
// it.
package pages

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/insider-e2e/internal/browser"
)

const (
	// DefaultTimeout bounds every wait made by a page object.
	DefaultTimeout = 15 * time.Second
	// DefaultScroll is the ScrollDown amount used when none is given.
	DefaultScroll = 200
)

// Header is the element whose visibility marks a page as rendered.
var Header = browser.TagName("h2")

// Option configures a BasePage.
type Option func(*BasePage)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(p *BasePage) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the page logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(p *BasePage) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// BasePage wraps a browser session with waits bounded by a single timeout.
// Wait helpers return an error naming the locator and the timeout; the
// error matches context.DeadlineExceeded when the timeout elapsed.
type BasePage struct {
	session browser.Session
	logger  arbor.ILogger
	timeout time.Duration
}

// NewBasePage creates a page over session.
func NewBasePage(session browser.Session, opts ...Option) *BasePage {
	p := &BasePage{
		session: session,
		logger:  arbor.NewNoOpLogger(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *BasePage) Session() browser.Session { return p.session }

func (p *BasePage) Logger() arbor.ILogger { return p.logger }

func (p *BasePage) Timeout() time.Duration { return p.timeout }

func (p *BasePage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.timeout)
}

func (p *BasePage) waitFor(ctx context.Context, loc browser.Locator, cond browser.Condition) (browser.Element, error) {
	waitCtx, cancel := p.withTimeout(ctx)
	defer cancel()

	el, err := p.session.WaitFor(waitCtx, loc, cond)
	if err != nil {
		return nil, fmt.Errorf("element %s was not %s after %s: %w", loc, cond, p.timeout, err)
	}
	return el, nil
}

// Open navigates to url.
func (p *BasePage) Open(ctx context.Context, url string) error {
	p.logger.Debug().Str("url", url).Msg("Opening page")
	if err := p.session.Navigate(ctx, url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

// Title waits until the document title is non-empty and returns it.
func (p *BasePage) Title(ctx context.Context) (string, error) {
	waitCtx, cancel := p.withTimeout(ctx)
	defer cancel()

	title, err := p.session.WaitForTitle(waitCtx)
	if err != nil {
		return "", fmt.Errorf("page title was empty after %s: %w", p.timeout, err)
	}
	return title, nil
}

// WaitForHeader waits for an h2 to become visible. A timeout is logged and
// otherwise ignored.
func (p *BasePage) WaitForHeader(ctx context.Context) {
	if _, err := p.waitFor(ctx, Header, browser.Visible); err != nil {
		p.logger.Warn().
			Dur("timeout", p.timeout).
			Err(err).
			Msg("Page header element not found")
	}
}

// WaitClickableAndClick waits until loc is clickable and clicks it.
func (p *BasePage) WaitClickableAndClick(ctx context.Context, loc browser.Locator) error {
	el, err := p.waitFor(ctx, loc, browser.Clickable)
	if err != nil {
		return err
	}
	return click(ctx, el, loc)
}

// WaitVisibleAndClick waits until loc is visible and clicks it.
func (p *BasePage) WaitVisibleAndClick(ctx context.Context, loc browser.Locator) error {
	el, err := p.waitFor(ctx, loc, browser.Visible)
	if err != nil {
		return err
	}
	return click(ctx, el, loc)
}

// HoverAndClick waits until loc is clickable, moves the pointer onto it and
// clicks. Menus that open on hover need this instead of a plain click.
func (p *BasePage) HoverAndClick(ctx context.Context, loc browser.Locator) error {
	el, err := p.waitFor(ctx, loc, browser.Clickable)
	if err != nil {
		return err
	}
	if err := el.Hover(ctx); err != nil {
		return fmt.Errorf("failed to move to %s: %w", loc, err)
	}
	return click(ctx, el, loc)
}

func click(ctx context.Context, el browser.Element, loc browser.Locator) error {
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("failed to click %s: %w", loc, err)
	}
	return nil
}

// FindAll returns the elements currently matching loc without waiting.
func (p *BasePage) FindAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	els, err := p.session.FindAll(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", loc, err)
	}
	return els, nil
}

// WaitForAll waits until at least one element matches loc and returns all
// matches.
func (p *BasePage) WaitForAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	waitCtx, cancel := p.withTimeout(ctx)
	defer cancel()

	els, err := p.session.WaitForAll(waitCtx, loc)
	if err != nil {
		return nil, fmt.Errorf("elements %s could not be found within %s: %w", loc, p.timeout, err)
	}
	return els, nil
}

// WaitVisible waits until loc is visible.
func (p *BasePage) WaitVisible(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	return p.waitFor(ctx, loc, browser.Visible)
}

// WaitAndGetText waits until loc is visible and returns its text.
func (p *BasePage) WaitAndGetText(ctx context.Context, loc browser.Locator) (string, error) {
	el, err := p.waitFor(ctx, loc, browser.Visible)
	if err != nil {
		return "", err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read text of %s: %w", loc, err)
	}
	return text, nil
}

// ScrollDown scrolls the window by px pixels, DefaultScroll when px <= 0.
// Script errors are logged only.
func (p *BasePage) ScrollDown(ctx context.Context, px int) {
	if px <= 0 {
		px = DefaultScroll
	}
	if err := p.session.ExecuteScript(ctx, fmt.Sprintf("window.scrollBy(0, %d);", px)); err != nil {
		p.logger.Warn().Int("px", px).Err(err).Msg("Error while scrolling")
	}
}
