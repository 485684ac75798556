package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/insider-e2e/internal/browser"
	"github.com/ternarybob/insider-e2e/internal/common"
	"github.com/ternarybob/insider-e2e/internal/fixturesite"
	"github.com/ternarybob/insider-e2e/internal/pages"
)

const probeTimeout = 2 * time.Minute

// probeBrowser launches the configured browser, opens the fixture home page
// and returns its title.
func probeBrowser(ctx context.Context, config *common.Config, siteURL string, logger arbor.ILogger) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	opts := config.BrowserOptions()
	opts.Logger = logger
	session, err := browser.New(ctx, opts)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := session.Quit(); err != nil {
			logger.Warn().Err(err).Msg("Probe browser quit returned an error")
		}
	}()

	page := pages.NewBasePage(session, pages.WithLogger(logger))
	if err := page.Open(ctx, siteURL); err != nil {
		return "", err
	}
	title, err := page.Title(ctx)
	if err != nil {
		return "", err
	}
	if !strings.Contains(title, fixturesite.HomeTitle) {
		return title, fmt.Errorf("unexpected fixture title %q", title)
	}
	return title, nil
}
