package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

const chromePollInterval = 100 * time.Millisecond

type chromeTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// chromeSession drives Chrome through chromedp. Each browser tab gets its own
// chromedp context; the current tab receives every call.
type chromeSession struct {
	mu          sync.Mutex
	logger      arbor.ILogger
	allocCancel context.CancelFunc
	root        chromeTab
	rootID      target.ID
	tabs        map[target.ID]chromeTab
	current     target.ID
}

func newChromeSession(ctx context.Context, opts Options) (*chromeSession, error) {
	execPath, err := resolveChromePath(opts.ChromePath, opts.Logger)
	if err != nil {
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("start-maximized", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)

	// The allocator outlives ctx: the browser belongs to the session, not to
	// the setup call.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		logger:      opts.Logger,
		allocCancel: allocCancel,
		root:        chromeTab{ctx: browserCtx, cancel: browserCancel},
		tabs:        make(map[target.ID]chromeTab),
	}

	// The first Run allocates the browser. It must not carry a timeout,
	// otherwise the browser dies with the timeout context.
	if err := chromedp.Run(browserCtx); err != nil {
		s.shutdown()
		return nil, fmt.Errorf("failed to launch Chrome: %w", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, opts.LaunchTimeout)
	defer cancel()

	var title string
	if err := s.runIn(probeCtx, browserCtx, chromedp.Navigate("about:blank"), chromedp.Title(&title)); err != nil {
		s.shutdown()
		return nil, fmt.Errorf("chrome failed startup probe: %w", err)
	}

	if c := chromedp.FromContext(browserCtx); c != nil && c.Target != nil {
		s.rootID = c.Target.TargetID
	}
	s.tabs[s.rootID] = s.root
	s.current = s.rootID

	opts.Logger.Debug().
		Str("exec_path", execPath).
		Str("target", string(s.rootID)).
		Msg("Chrome session ready")

	return s, nil
}

func (s *chromeSession) Name() Name { return Chrome }

func (s *chromeSession) tab() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[s.current]
	if !ok {
		return nil, fmt.Errorf("no current tab (closed %q)", s.current)
	}
	return t.ctx, nil
}

func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, err := s.tab()
	if err != nil {
		return err
	}
	return s.runIn(ctx, tabCtx, actions...)
}

// runIn executes actions in tabCtx while honouring the deadline and
// cancellation of the caller's ctx.
func (s *chromeSession) runIn(ctx, tabCtx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// runCtx can expire a moment before ctx does
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return context.DeadlineExceeded
		}
	}
	return err
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *chromeSession) Title(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, chromedp.Title(&title))
	return title, err
}

func (s *chromeSession) WaitForTitle(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, chromedp.Poll(`document.title`, &title, chromedp.WithPollingInterval(chromePollInterval)))
	return title, err
}

func (s *chromeSession) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, chromedp.Location(&url))
	return url, err
}

// chromeQuery maps a locator onto a chromedp selector and query option.
// XPath goes through DOM.performSearch; everything else through
// querySelector(All). A single-element XPath query is narrowed to the first
// match in document order, because chromedp's readiness checks require every
// matched node to be ready.
func chromeQuery(loc Locator, all bool) (string, chromedp.QueryOption, error) {
	if loc.IsXPath() {
		if all {
			return loc.Value, chromedp.BySearch, nil
		}
		return firstMatch(loc.Value), chromedp.BySearch, nil
	}
	sel, err := loc.CSSSelector()
	if err != nil {
		return "", nil, err
	}
	if all {
		return sel, chromedp.ByQueryAll, nil
	}
	return sel, chromedp.ByQuery, nil
}

func firstMatch(expr string) string {
	return "(" + expr + ")[1]"
}

func (s *chromeSession) WaitFor(ctx context.Context, loc Locator, cond Condition) (Element, error) {
	sel, by, err := chromeQuery(loc, false)
	if err != nil {
		return nil, err
	}

	var nodes []*cdp.Node
	var actions []chromedp.Action
	switch cond {
	case Present:
		actions = append(actions, chromedp.Nodes(sel, &nodes, by, chromedp.NodeReady))
	case Visible:
		actions = append(actions, chromedp.Nodes(sel, &nodes, by, chromedp.NodeVisible))
	case Clickable:
		actions = append(actions,
			chromedp.WaitVisible(sel, by),
			chromedp.Nodes(sel, &nodes, by, chromedp.NodeEnabled),
		)
	default:
		return nil, fmt.Errorf("unknown wait condition %v", cond)
	}

	if err := s.run(ctx, actions...); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchElement, loc)
	}
	return &chromeElement{s: s, node: nodes[0]}, nil
}

func (s *chromeSession) WaitForAll(ctx context.Context, loc Locator) ([]Element, error) {
	return s.nodes(ctx, loc, chromedp.NodeReady)
}

func (s *chromeSession) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	return s.nodes(ctx, loc, chromedp.AtLeast(0))
}

func (s *chromeSession) nodes(ctx context.Context, loc Locator, opt chromedp.QueryOption) ([]Element, error) {
	sel, by, err := chromeQuery(loc, true)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(sel, &nodes, by, opt)); err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &chromeElement{s: s, node: n})
	}
	return elements, nil
}

func (s *chromeSession) ExecuteScript(ctx context.Context, script string) error {
	return s.run(ctx, chromedp.Evaluate(script, nil))
}

func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

func (s *chromeSession) PageSource(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *chromeSession) WindowHandles(ctx context.Context) ([]string, error) {
	tabCtx, err := s.tab()
	if err != nil {
		return nil, err
	}
	infos, err := chromedp.Targets(tabCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	var handles []string
	for _, info := range infos {
		if info.Type == "page" {
			handles = append(handles, string(info.TargetID))
		}
	}
	return handles, nil
}

func (s *chromeSession) WaitForWindows(ctx context.Context, n int) ([]string, error) {
	ticker := time.NewTicker(chromePollInterval)
	defer ticker.Stop()
	for {
		handles, err := s.WindowHandles(ctx)
		if err != nil {
			return nil, err
		}
		if len(handles) >= n {
			return handles, nil
		}
		select {
		case <-ctx.Done():
			return handles, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *chromeSession) CurrentWindow(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.current), nil
}

func (s *chromeSession) SwitchWindow(ctx context.Context, handle string) error {
	id := target.ID(handle)

	s.mu.Lock()
	if _, ok := s.tabs[id]; ok {
		s.current = id
		s.mu.Unlock()
		return nil
	}
	root := s.root.ctx
	s.mu.Unlock()

	tabCtx, cancel := chromedp.NewContext(root, chromedp.WithTargetID(id))
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return fmt.Errorf("failed to attach to window %s: %w", handle, err)
	}

	s.mu.Lock()
	s.tabs[id] = chromeTab{ctx: tabCtx, cancel: cancel}
	s.current = id
	s.mu.Unlock()
	return nil
}

func (s *chromeSession) CloseWindow(ctx context.Context) error {
	s.mu.Lock()
	id := s.current
	t, ok := s.tabs[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("window %s is not open", id)
	}

	err := s.runIn(ctx, t.ctx, page.Close())

	s.mu.Lock()
	delete(s.tabs, id)
	s.current = ""
	s.mu.Unlock()

	if id != s.rootID {
		t.cancel()
	}
	return err
}

func (s *chromeSession) Maximize(ctx context.Context) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		windowID, _, err := cdpbrowser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return err
		}
		return cdpbrowser.SetWindowBounds(windowID, &cdpbrowser.Bounds{
			WindowState: cdpbrowser.WindowStateMaximized,
		}).Do(ctx)
	}))
}

func (s *chromeSession) Quit() error {
	s.mu.Lock()
	for id, t := range s.tabs {
		if id != s.rootID {
			t.cancel()
		}
	}
	s.tabs = map[target.ID]chromeTab{}
	s.mu.Unlock()

	err := chromedp.Cancel(s.root.ctx)
	s.shutdown()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("browser cancel returned: %w", err)
	}
	return nil
}

func (s *chromeSession) shutdown() {
	s.root.cancel()
	s.allocCancel()
}

type chromeElement struct {
	s    *chromeSession
	node *cdp.Node
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.s.run(ctx, chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID))
	return strings.TrimSpace(text), err
}

func (e *chromeElement) Click(ctx context.Context) error {
	return e.s.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *chromeElement) Hover(ctx context.Context) error {
	return e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID).Do(ctx); err != nil {
			return fmt.Errorf("failed to scroll element into view: %w", err)
		}
		quads, err := dom.GetContentQuads().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to read element geometry: %w", err)
		}
		if len(quads) == 0 {
			return errors.New("element has no layout box")
		}
		x, y := quadCenter(quads[0])
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

func (e *chromeElement) Find(ctx context.Context, loc Locator) (Element, error) {
	var (
		nodes []*cdp.Node
		err   error
	)
	if loc.IsXPath() {
		expr := loc.Value
		if loc.Relative() {
			expr = e.node.FullXPath() + strings.TrimPrefix(loc.Value, ".")
		}
		err = e.s.run(ctx, chromedp.Nodes(firstMatch(expr), &nodes, chromedp.BySearch, chromedp.AtLeast(0)))
	} else {
		sel, cssErr := loc.CSSSelector()
		if cssErr != nil {
			return nil, cssErr
		}
		err = e.s.run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQuery, chromedp.FromNode(e.node), chromedp.AtLeast(0)))
	}
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchElement, loc)
	}
	return &chromeElement{s: e.s, node: nodes[0]}, nil
}

func quadCenter(q dom.Quad) (float64, float64) {
	var x, y float64
	points := len(q) / 2
	for i := 0; i < points; i++ {
		x += q[2*i]
		y += q[2*i+1]
	}
	return x / float64(points), y / float64(points)
}
