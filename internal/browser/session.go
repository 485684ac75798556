// Package browser bootstraps browser sessions and exposes the navigation and
// element-query primitives the page objects are built on.
//
// Two backends sit behind the Session interface: Chrome driven over the
// DevTools protocol with chromedp, and Firefox driven over W3C WebDriver
// through a geckodriver service.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

var (
	// ErrUnsupportedBrowser is returned when a browser name other than
	// "chrome" or "firefox" is requested.
	ErrUnsupportedBrowser = errors.New("unsupported browser")

	// ErrNoSuchElement is returned by immediate (non-waiting) lookups that
	// match nothing.
	ErrNoSuchElement = errors.New("no such element")
)

// Name identifies a browser backend.
type Name string

const (
	Chrome  Name = "chrome"
	Firefox Name = "firefox"
)

// ParseName validates a browser selection. Anything but "chrome" or
// "firefox" fails with ErrUnsupportedBrowser.
func ParseName(s string) (Name, error) {
	switch Name(strings.ToLower(strings.TrimSpace(s))) {
	case Chrome:
		return Chrome, nil
	case Firefox:
		return Firefox, nil
	}
	return "", fmt.Errorf("%w %q: select one of '%s' or '%s'", ErrUnsupportedBrowser, s, Chrome, Firefox)
}

// Condition is the precondition a wait blocks on.
type Condition int

const (
	// Present: the element is attached to the DOM.
	Present Condition = iota
	// Visible: present and rendered.
	Visible
	// Clickable: visible and enabled.
	Clickable
)

func (c Condition) String() string {
	switch c {
	case Present:
		return "present"
	case Visible:
		return "visible"
	case Clickable:
		return "clickable"
	}
	return fmt.Sprintf("condition(%d)", int(c))
}

// Session is one live browser. All blocking calls honour ctx; waits poll
// until the condition holds or ctx is done, and report ctx.Err() (usually
// context.DeadlineExceeded) on expiry.
type Session interface {
	Name() Name

	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	WaitForTitle(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)

	WaitFor(ctx context.Context, loc Locator, cond Condition) (Element, error)
	WaitForAll(ctx context.Context, loc Locator) ([]Element, error)
	FindAll(ctx context.Context, loc Locator) ([]Element, error)

	ExecuteScript(ctx context.Context, script string) error
	Screenshot(ctx context.Context) ([]byte, error)
	PageSource(ctx context.Context) (string, error)

	WindowHandles(ctx context.Context) ([]string, error)
	WaitForWindows(ctx context.Context, n int) ([]string, error)
	CurrentWindow(ctx context.Context) (string, error)
	SwitchWindow(ctx context.Context, handle string) error
	CloseWindow(ctx context.Context) error
	Maximize(ctx context.Context) error

	Quit() error
}

// Element is a handle to a located DOM element.
type Element interface {
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	// Hover moves the pointer onto the element.
	Hover(ctx context.Context) error
	// Find performs an immediate lookup scoped to this element. Relative
	// XPath (".//a") is resolved against the element.
	Find(ctx context.Context, loc Locator) (Element, error)
}

// Options configures a new Session.
type Options struct {
	Browser         string
	Headless        bool
	ChromePath      string
	GeckoDriverPath string
	WindowWidth     int
	WindowHeight    int
	LaunchTimeout   time.Duration
	Logger          arbor.ILogger
}

// DefaultOptions returns headless Chrome at 1920x1080.
func DefaultOptions() Options {
	return Options{
		Browser:         string(Chrome),
		Headless:        true,
		GeckoDriverPath: "geckodriver",
		WindowWidth:     1920,
		WindowHeight:    1080,
		LaunchTimeout:   30 * time.Second,
	}
}

// New launches the selected browser. The browser name is validated before
// any process is started.
func New(ctx context.Context, opts Options) (Session, error) {
	name, err := ParseName(opts.Browser)
	if err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = arbor.NewLogger()
	}
	if opts.LaunchTimeout <= 0 {
		opts.LaunchTimeout = DefaultOptions().LaunchTimeout
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = DefaultOptions().WindowWidth, DefaultOptions().WindowHeight
	}

	opts.Logger.Info().
		Str("browser", string(name)).
		Bool("headless", opts.Headless).
		Int("width", opts.WindowWidth).
		Int("height", opts.WindowHeight).
		Msg("Starting browser session")

	switch name {
	case Firefox:
		return newFirefoxSession(ctx, opts)
	default:
		return newChromeSession(ctx, opts)
	}
}
