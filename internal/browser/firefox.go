package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/firefox"
	"github.com/ternarybob/arbor"
)

const (
	firefoxPollInterval = 250 * time.Millisecond
	// waits without a ctx deadline are capped at this
	firefoxMaxWait = time.Hour
	// W3C web element reference key
	webElementKey = "element-6066-11e4-a52e-4f735466cecf"
)

// firefoxSession drives Firefox over W3C WebDriver via a geckodriver
// service bound to a free local port.
type firefoxSession struct {
	service  *selenium.Service
	endpoint string
	wd       selenium.WebDriver
	logger   arbor.ILogger
}

func newFirefoxSession(ctx context.Context, opts Options) (*firefoxSession, error) {
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve geckodriver port: %w", err)
	}

	service, err := selenium.NewGeckoDriverService(opts.GeckoDriverPath, port)
	if err != nil {
		return nil, fmt.Errorf("failed to start geckodriver %s: %w", opts.GeckoDriverPath, err)
	}

	args := []string{
		"--width=" + strconv.Itoa(opts.WindowWidth),
		"--height=" + strconv.Itoa(opts.WindowHeight),
	}
	if opts.Headless {
		args = append(args, "-headless")
	}

	caps := selenium.Capabilities{"browserName": "firefox"}
	caps.AddFirefox(firefox.Capabilities{Args: args})

	if err := ctx.Err(); err != nil {
		service.Stop()
		return nil, err
	}

	s, err := dialFirefox(fmt.Sprintf("http://localhost:%d", port), caps, opts.Logger)
	if err != nil {
		service.Stop()
		return nil, err
	}
	s.service = service

	opts.Logger.Debug().
		Str("geckodriver", opts.GeckoDriverPath).
		Int("port", port).
		Msg("Firefox session ready")

	return s, nil
}

// dialFirefox opens a WebDriver session on an already running endpoint.
func dialFirefox(endpoint string, caps selenium.Capabilities, logger arbor.ILogger) (*firefoxSession, error) {
	wd, err := selenium.NewRemote(caps, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to open Firefox session: %w", err)
	}
	return &firefoxSession{endpoint: endpoint, wd: wd, logger: logger}, nil
}

func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

func (s *firefoxSession) Name() Name { return Firefox }

// wait polls cond until it holds or ctx is done. geckodriver calls cannot be
// interrupted, so the ctx deadline is translated into the poll timeout.
func (s *firefoxSession) wait(ctx context.Context, cond selenium.Condition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := firefoxMaxWait
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	err := s.wd.WaitWithTimeoutAndInterval(func(wd selenium.WebDriver) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return cond(wd)
	}, timeout, firefoxPollInterval)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return fmt.Errorf("%v: %w", err, context.DeadlineExceeded)
	}
	return err
}

func (s *firefoxSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.wd.Get(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *firefoxSession) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.wd.Title()
}

func (s *firefoxSession) WaitForTitle(ctx context.Context) (string, error) {
	var title string
	err := s.wait(ctx, func(wd selenium.WebDriver) (bool, error) {
		t, err := wd.Title()
		if err != nil {
			return false, nil
		}
		title = t
		return t != "", nil
	})
	return title, err
}

func (s *firefoxSession) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.wd.CurrentURL()
}

// w3cLocator maps a locator onto a W3C location strategy. W3C dropped the
// id and class name strategies, so those go through a css selector.
func w3cLocator(loc Locator) (string, string, error) {
	switch loc.By {
	case ByXPath, ByCSS, ByTagName:
		return string(loc.By), loc.Value, nil
	}
	sel, err := loc.CSSSelector()
	if err != nil {
		return "", "", err
	}
	return string(ByCSS), sel, nil
}

func (s *firefoxSession) WaitFor(ctx context.Context, loc Locator, cond Condition) (Element, error) {
	by, value, err := w3cLocator(loc)
	if err != nil {
		return nil, err
	}
	var found selenium.WebElement
	err = s.wait(ctx, func(wd selenium.WebDriver) (bool, error) {
		el, err := wd.FindElement(by, value)
		if err != nil {
			return false, nil
		}
		ok, err := meets(el, cond)
		if err != nil || !ok {
			return false, nil
		}
		found = el
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &firefoxElement{s: s, el: found}, nil
}

func meets(el selenium.WebElement, cond Condition) (bool, error) {
	switch cond {
	case Present:
		return true, nil
	case Visible:
		return el.IsDisplayed()
	case Clickable:
		visible, err := el.IsDisplayed()
		if err != nil || !visible {
			return false, err
		}
		return el.IsEnabled()
	}
	return false, fmt.Errorf("unknown wait condition %v", cond)
}

func (s *firefoxSession) WaitForAll(ctx context.Context, loc Locator) ([]Element, error) {
	by, value, err := w3cLocator(loc)
	if err != nil {
		return nil, err
	}
	var found []selenium.WebElement
	err = s.wait(ctx, func(wd selenium.WebDriver) (bool, error) {
		els, err := wd.FindElements(by, value)
		if err != nil || len(els) == 0 {
			return false, nil
		}
		found = els
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return s.wrap(found), nil
}

func (s *firefoxSession) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	by, value, err := w3cLocator(loc)
	if err != nil {
		return nil, err
	}
	els, err := s.wd.FindElements(by, value)
	if err != nil {
		return nil, err
	}
	return s.wrap(els), nil
}

func (s *firefoxSession) wrap(els []selenium.WebElement) []Element {
	elements := make([]Element, 0, len(els))
	for _, el := range els {
		elements = append(elements, &firefoxElement{s: s, el: el})
	}
	return elements
}

func (s *firefoxSession) ExecuteScript(ctx context.Context, script string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.wd.ExecuteScript(script, nil)
	return err
}

func (s *firefoxSession) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := s.wd.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

func (s *firefoxSession) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.wd.PageSource()
}

func (s *firefoxSession) WindowHandles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.wd.WindowHandles()
}

func (s *firefoxSession) WaitForWindows(ctx context.Context, n int) ([]string, error) {
	var handles []string
	err := s.wait(ctx, func(wd selenium.WebDriver) (bool, error) {
		h, err := wd.WindowHandles()
		if err != nil {
			return false, nil
		}
		handles = h
		return len(h) >= n, nil
	})
	return handles, err
}

func (s *firefoxSession) CurrentWindow(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.wd.CurrentWindowHandle()
}

func (s *firefoxSession) SwitchWindow(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.wd.SwitchWindow(handle)
}

func (s *firefoxSession) CloseWindow(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	handle, err := s.wd.CurrentWindowHandle()
	if err != nil {
		return err
	}
	return s.wd.CloseWindow(handle)
}

func (s *firefoxSession) Maximize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.wd.MaximizeWindow("")
}

func (s *firefoxSession) Quit() error {
	quitErr := s.wd.Quit()
	var stopErr error
	if s.service != nil {
		stopErr = s.service.Stop()
	}
	return errors.Join(quitErr, stopErr)
}

// command sends a W3C endpoint selenium has no method for, relative to the
// session URL.
func (s *firefoxSession) command(ctx context.Context, method, path string, params any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/session/%s/%s", s.endpoint, s.wd.SessionID(), path)
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := selenium.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	var reply struct {
		Value selenium.Error `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil || reply.Value.Err == "" {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	reply.Value.HTTPCode = resp.StatusCode
	return &reply.Value
}

// elementID extracts the W3C reference from a selenium element.
func elementID(el selenium.WebElement) (string, error) {
	raw, err := json.Marshal(el)
	if err != nil {
		return "", err
	}
	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", err
	}
	if id := ref[webElementKey]; id != "" {
		return id, nil
	}
	return "", fmt.Errorf("element reference %s carries no id", raw)
}

type firefoxElement struct {
	s  *firefoxSession
	el selenium.WebElement
}

func (e *firefoxElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.el.Text()
}

func (e *firefoxElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.Click()
}

// Hover moves the pointer to the element's centre through the W3C actions
// endpoint. selenium's MoveTo posts the JSON-Wire moveto command, which
// geckodriver does not implement.
func (e *firefoxElement) Hover(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := elementID(e.el)
	if err != nil {
		return err
	}
	move := map[string]any{
		"type":       "pointer",
		"id":         "mouse",
		"parameters": map[string]string{"pointerType": "mouse"},
		"actions": []map[string]any{{
			"type":     "pointerMove",
			"duration": 0,
			"origin":   map[string]string{webElementKey: id},
			"x":        0,
			"y":        0,
		}},
	}
	if err := e.s.command(ctx, http.MethodPost, "actions", map[string]any{"actions": []any{move}}); err != nil {
		return fmt.Errorf("failed to hover element: %w", err)
	}
	return nil
}

func (e *firefoxElement) Find(ctx context.Context, loc Locator) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	by, value, err := w3cLocator(loc)
	if err != nil {
		return nil, err
	}
	el, err := e.el.FindElement(by, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoSuchElement, loc, err)
	}
	return &firefoxElement{s: e.s, el: el}, nil
}
