// Package browsertest provides an in-memory browser.Session for exercising
// page objects without launching a browser.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/insider-e2e/internal/browser"
)

// Element is a scripted DOM element. The zero value is present, visible and
// enabled from the moment the session is created.
type Element struct {
	Text     string
	Hidden   bool
	Disabled bool
	// AppearAfter delays the element's presence relative to session creation.
	AppearAfter time.Duration
	Children    map[browser.Locator]*Element
	// OnClick runs after the click is recorded.
	OnClick func(s *Session)

	Clicks int
	Hovers int
}

// Window is one tab with its own title, URL and elements.
type Window struct {
	Handle   string
	Title    string
	URL      string
	Elements map[browser.Locator][]*Element
}

// NewWindow returns an empty window.
func NewWindow(handle, title, url string) *Window {
	return &Window{Handle: handle, Title: title, URL: url, Elements: map[browser.Locator][]*Element{}}
}

// Add registers elements under loc.
func (w *Window) Add(loc browser.Locator, els ...*Element) *Window {
	w.Elements[loc] = append(w.Elements[loc], els...)
	return w
}

// Session implements browser.Session over scripted windows.
type Session struct {
	mu      sync.Mutex
	created time.Time
	windows []*Window
	current string

	PollInterval time.Duration
	// OnNavigate, when set, replaces the default navigation (URL update only).
	OnNavigate func(s *Session, w *Window, url string)

	Navigations []string
	Scripts     []string
	PNG         []byte
	Source      string
	ScriptErr   error
	Quits       int
}

// NewSession returns a session with a single window, "main".
func NewSession() *Session {
	main := NewWindow("main", "", "about:blank")
	return &Session{
		created:      time.Now(),
		windows:      []*Window{main},
		current:      main.Handle,
		PollInterval: 5 * time.Millisecond,
		PNG:          []byte("\x89PNG\r\n\x1a\n"),
	}
}

// Main returns the first window.
func (s *Session) Main() *Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windows[0]
}

// OpenWindow adds a window without switching to it.
func (s *Session) OpenWindow(w *Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = append(s.windows, w)
}

func (s *Session) window() (*Window, error) {
	for _, w := range s.windows {
		if w.Handle == s.current {
			return w, nil
		}
	}
	return nil, fmt.Errorf("no such window %q", s.current)
}

func (s *Session) present(el *Element) bool {
	return time.Since(s.created) >= el.AppearAfter
}

func (s *Session) meets(el *Element, cond browser.Condition) bool {
	if !s.present(el) {
		return false
	}
	switch cond {
	case browser.Visible:
		return !el.Hidden
	case browser.Clickable:
		return !el.Hidden && !el.Disabled
	}
	return true
}

func (s *Session) poll(ctx context.Context, check func() bool) error {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()
	for {
		if check() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Session) Name() browser.Name { return browser.Chrome }

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	w, err := s.window()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.Navigations = append(s.Navigations, url)
	hook := s.OnNavigate
	if hook == nil {
		w.URL = url
	}
	s.mu.Unlock()

	if hook != nil {
		hook(s, w, url)
	}
	return nil
}

func (s *Session) Title(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.window()
	if err != nil {
		return "", err
	}
	return w.Title, nil
}

func (s *Session) WaitForTitle(ctx context.Context) (string, error) {
	var title string
	err := s.poll(ctx, func() bool {
		title, _ = s.Title(ctx)
		return title != ""
	})
	return title, err
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.window()
	if err != nil {
		return "", err
	}
	return w.URL, nil
}

func (s *Session) lookup(loc browser.Locator, cond browser.Condition) []*Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.window()
	if err != nil {
		return nil
	}
	var matched []*Element
	for _, el := range w.Elements[loc] {
		if s.meets(el, cond) {
			matched = append(matched, el)
		}
	}
	return matched
}

func (s *Session) WaitFor(ctx context.Context, loc browser.Locator, cond browser.Condition) (browser.Element, error) {
	var found *Element
	err := s.poll(ctx, func() bool {
		if els := s.lookup(loc, cond); len(els) > 0 {
			found = els[0]
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	return &handle{s: s, el: found}, nil
}

func (s *Session) WaitForAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	var found []*Element
	err := s.poll(ctx, func() bool {
		found = s.lookup(loc, browser.Present)
		return len(found) > 0
	})
	if err != nil {
		return nil, err
	}
	return s.handles(found), nil
}

func (s *Session) FindAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.handles(s.lookup(loc, browser.Present)), nil
}

func (s *Session) handles(els []*Element) []browser.Element {
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &handle{s: s, el: el})
	}
	return out
}

func (s *Session) ExecuteScript(ctx context.Context, script string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scripts = append(s.Scripts, script)
	return s.ScriptErr
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	return s.PNG, ctx.Err()
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	return s.Source, ctx.Err()
}

func (s *Session) WindowHandles(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handles := make([]string, 0, len(s.windows))
	for _, w := range s.windows {
		handles = append(handles, w.Handle)
	}
	return handles, nil
}

func (s *Session) WaitForWindows(ctx context.Context, n int) ([]string, error) {
	var handles []string
	err := s.poll(ctx, func() bool {
		handles, _ = s.WindowHandles(ctx)
		return len(handles) >= n
	})
	return handles, err
}

func (s *Session) CurrentWindow(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

func (s *Session) SwitchWindow(ctx context.Context, h string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.windows {
		if w.Handle == h {
			s.current = h
			return nil
		}
	}
	return fmt.Errorf("no such window %q", h)
}

func (s *Session) CloseWindow(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.windows {
		if w.Handle == s.current {
			s.windows = append(s.windows[:i], s.windows[i+1:]...)
			s.current = ""
			return nil
		}
	}
	return fmt.Errorf("no such window %q", s.current)
}

func (s *Session) Maximize(ctx context.Context) error { return nil }

func (s *Session) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Quits++
	return nil
}

type handle struct {
	s  *Session
	el *Element
}

func (h *handle) Text(ctx context.Context) (string, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.el.Text, nil
}

func (h *handle) Click(ctx context.Context) error {
	h.s.mu.Lock()
	h.el.Clicks++
	onClick := h.el.OnClick
	h.s.mu.Unlock()

	if onClick != nil {
		onClick(h.s)
	}
	return nil
}

func (h *handle) Hover(ctx context.Context) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.el.Hovers++
	return nil
}

func (h *handle) Find(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	child, ok := h.el.Children[loc]
	if !ok || !h.s.present(child) {
		return nil, fmt.Errorf("%w: %s", browser.ErrNoSuchElement, loc)
	}
	return &handle{s: h.s, el: child}, nil
}

var _ browser.Session = (*Session)(nil)
