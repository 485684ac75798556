// Package artifacts stores what a failed browser test leaves behind: a
// screenshot of the page and a dump of its source.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout is the timestamp suffix of every artifact file name.
const TimestampLayout = "2006-01-02_15-04-05"

// Capturer is the part of a browser session artifacts are taken from.
type Capturer interface {
	Screenshot(ctx context.Context) ([]byte, error)
	PageSource(ctx context.Context) (string, error)
}

// Failure lists the files written for one failed test. Either path is empty
// when that artifact could not be captured.
type Failure struct {
	Screenshot string
	PageSource string
}

// FileStem returns "<testName>_<timestamp>" with path separators in the
// test name (subtests) replaced by dashes.
func FileStem(testName string, now time.Time) string {
	name := strings.NewReplacer("/", "-", "\\", "-", " ", "_").Replace(testName)
	return fmt.Sprintf("%s_%s", name, now.Format(TimestampLayout))
}

// SaveFailure writes <dir>/<stem>.png and <dir>/<stem>.html, creating dir
// as needed. A failed capture does not stop the other one; all errors are
// joined into the result.
func SaveFailure(ctx context.Context, c Capturer, dir, testName string, now time.Time) (Failure, error) {
	var out Failure
	if err := os.MkdirAll(dir, 0755); err != nil {
		return out, fmt.Errorf("failed to create screenshot directory %s: %w", dir, err)
	}
	stem := filepath.Join(dir, FileStem(testName, now))

	var errs []error

	if png, err := c.Screenshot(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to capture screenshot: %w", err))
	} else if err := os.WriteFile(stem+".png", png, 0644); err != nil {
		errs = append(errs, fmt.Errorf("failed to save screenshot: %w", err))
	} else {
		out.Screenshot = stem + ".png"
	}

	if src, err := c.PageSource(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to capture page source: %w", err))
	} else if err := os.WriteFile(stem+".html", []byte(src), 0644); err != nil {
		errs = append(errs, fmt.Errorf("failed to save page source: %w", err))
	} else {
		out.PageSource = stem + ".html"
	}

	return out, errors.Join(errs...)
}
