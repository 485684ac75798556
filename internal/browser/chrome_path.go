package browser

import (
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/ternarybob/arbor"
)

// resolveChromePath picks the Chrome binary: the configured path, then a
// locally installed Chrome/Chromium, then a Chromium downloaded by rod's
// launcher into its cache directory.
func resolveChromePath(configured string, logger arbor.ILogger) (string, error) {
	if configured != "" {
		return configured, nil
	}

	if path, found := launcher.LookPath(); found {
		return path, nil
	}

	logger.Info().Msg("No local Chrome found, downloading Chromium")
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("failed to download Chromium: %w", err)
	}
	return path, nil
}
