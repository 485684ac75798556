package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tebeka/selenium"
	"github.com/ternarybob/arbor"
)

type fakeNode struct {
	id        string
	text      string
	displayed bool
	enabled   bool
	children  map[string]string // "using value" -> node id
}

// fakeGecko answers the W3C routes geckodriver serves and nothing else.
type fakeGecko struct {
	mu       sync.Mutex
	nodes    map[string]*fakeNode
	matches  map[string][]string // "using value" -> node ids in document order
	handles  []string
	requests []string
	actions  []json.RawMessage
	// openAfter adds a second window after this many handle listings
	openAfter int
	listings  int
}

func newFakeGecko() *fakeGecko {
	return &fakeGecko{
		nodes:   map[string]*fakeNode{},
		matches: map[string][]string{},
		handles: []string{"w1"},
	}
}

func (g *fakeGecko) add(using, value string, n *fakeNode) {
	g.nodes[n.id] = n
	key := using + " " + value
	g.matches[key] = append(g.matches[key], n.id)
}

func (g *fakeGecko) requested() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.requests...)
}

func (g *fakeGecko) pointerActions() []json.RawMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]json.RawMessage(nil), g.actions...)
}

func writeValue(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"value": v})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeValue(w, status, map[string]string{"error": code, "message": msg})
}

func ref(id string) map[string]string {
	return map[string]string{webElementKey: id}
}

func (g *fakeGecko) handler() http.Handler {
	mux := http.NewServeMux()

	decodeFind := func(r *http.Request) string {
		var body struct{ Using, Value string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		return body.Using + " " + body.Value
	}

	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, http.StatusOK, map[string]any{
			"sessionId":    "s1",
			"capabilities": map[string]string{"browserName": "firefox", "browserVersion": "128.0"},
		})
	})
	mux.HandleFunc("DELETE /session/{sid}", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, http.StatusOK, nil)
	})
	mux.HandleFunc("POST /session/{sid}/element", func(w http.ResponseWriter, r *http.Request) {
		key := decodeFind(r)
		g.mu.Lock()
		ids := g.matches[key]
		g.mu.Unlock()
		if len(ids) == 0 {
			writeError(w, http.StatusNotFound, "no such element", "Unable to locate element: "+key)
			return
		}
		writeValue(w, http.StatusOK, ref(ids[0]))
	})
	mux.HandleFunc("POST /session/{sid}/elements", func(w http.ResponseWriter, r *http.Request) {
		key := decodeFind(r)
		g.mu.Lock()
		refs := []map[string]string{}
		for _, id := range g.matches[key] {
			refs = append(refs, ref(id))
		}
		g.mu.Unlock()
		writeValue(w, http.StatusOK, refs)
	})
	mux.HandleFunc("POST /session/{sid}/element/{eid}/element", func(w http.ResponseWriter, r *http.Request) {
		key := decodeFind(r)
		g.mu.Lock()
		child := ""
		if n := g.nodes[r.PathValue("eid")]; n != nil {
			child = n.children[key]
		}
		g.mu.Unlock()
		if child == "" {
			writeError(w, http.StatusNotFound, "no such element", "Unable to locate element: "+key)
			return
		}
		writeValue(w, http.StatusOK, ref(child))
	})
	mux.HandleFunc("GET /session/{sid}/element/{eid}/{prop}", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		n := g.nodes[r.PathValue("eid")]
		g.mu.Unlock()
		if n == nil {
			writeError(w, http.StatusNotFound, "no such element", "stale element")
			return
		}
		switch r.PathValue("prop") {
		case "displayed":
			writeValue(w, http.StatusOK, n.displayed)
		case "enabled":
			writeValue(w, http.StatusOK, n.enabled)
		case "text":
			writeValue(w, http.StatusOK, n.text)
		default:
			writeError(w, http.StatusNotFound, "unknown command", "Unknown command: "+r.URL.Path)
		}
	})
	mux.HandleFunc("GET /session/{sid}/window/handles", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.listings++
		if g.openAfter > 0 && g.listings >= g.openAfter && len(g.handles) == 1 {
			g.handles = append(g.handles, "w2")
		}
		handles := append([]string(nil), g.handles...)
		g.mu.Unlock()
		writeValue(w, http.StatusOK, handles)
	})
	mux.HandleFunc("POST /session/{sid}/actions", func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
			return
		}
		g.mu.Lock()
		g.actions = append(g.actions, body)
		g.mu.Unlock()
		writeValue(w, http.StatusOK, nil)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "unknown command", "Unknown command: "+r.URL.Path)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.requests = append(g.requests, r.Method+" "+r.URL.Path)
		g.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func dialFake(t *testing.T, g *fakeGecko) *firefoxSession {
	t.Helper()
	srv := httptest.NewServer(g.handler())
	t.Cleanup(srv.Close)

	s, err := dialFirefox(srv.URL, selenium.Capabilities{"browserName": "firefox"}, arbor.NewNoOpLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Quit() })
	return s
}

func TestFirefox_WaitForConditions(t *testing.T) {
	g := newFakeGecko()
	g.add("xpath", `//a[contains(text(),"Careers")]`, &fakeNode{id: "careers", text: "Careers", displayed: true, enabled: true})
	g.add("xpath", `//button[@id="apply"]`, &fakeNode{id: "apply", displayed: true, enabled: false})
	g.add("xpath", `//div[@id="drawer"]`, &fakeNode{id: "drawer", displayed: false, enabled: true})
	s := dialFake(t, g)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	el, err := s.WaitFor(ctx, XPath(`//a[contains(text(),"Careers")]`), Clickable)
	require.NoError(t, err)
	text, err := el.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Careers", text)

	tests := []struct {
		name string
		loc  Locator
		cond Condition
	}{
		{"disabled is not clickable", XPath(`//button[@id="apply"]`), Clickable},
		{"hidden is not visible", XPath(`//div[@id="drawer"]`), Visible},
		{"missing is not present", XPath(`//nav`), Present},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			waitCtx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
			defer cancel()

			_, err := s.WaitFor(waitCtx, tt.loc, tt.cond)
			require.Error(t, err)
			assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
		})
	}

	// hidden but present
	_, err = s.WaitFor(ctx, XPath(`//div[@id="drawer"]`), Present)
	require.NoError(t, err)
}

func TestFirefox_LocatorsUseW3CStrategies(t *testing.T) {
	g := newFakeGecko()
	g.add("css selector", `[class~="position-list-item"]`, &fakeNode{id: "j1", displayed: true})
	g.add("css selector", `[class~="position-list-item"]`, &fakeNode{id: "j2", displayed: true})
	g.add("css selector", `[id="resultCounter"]`, &fakeNode{id: "count", text: "3", displayed: true, enabled: true})
	g.add("tag name", "h2", &fakeNode{id: "h2", displayed: true})
	s := dialFake(t, g)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	jobs, err := s.WaitForAll(ctx, ClassName("position-list-item"))
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	counter, err := s.WaitFor(ctx, ID("resultCounter"), Visible)
	require.NoError(t, err)
	text, err := counter.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", text)

	headers, err := s.FindAll(ctx, TagName("h2"))
	require.NoError(t, err)
	assert.Len(t, headers, 1)

	none, err := s.FindAll(ctx, CSS(".missing"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFirefox_HoverSendsPointerMove(t *testing.T) {
	g := newFakeGecko()
	g.add("xpath", `//a[contains(text(),"Company")]`, &fakeNode{id: "company", displayed: true, enabled: true})
	s := dialFake(t, g)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	el, err := s.WaitFor(ctx, XPath(`//a[contains(text(),"Company")]`), Visible)
	require.NoError(t, err)
	require.NoError(t, el.Hover(ctx))

	assert.Contains(t, g.requested(), "POST /session/s1/actions")
	assert.NotContains(t, g.requested(), "POST /session/s1/moveto")

	actions := g.pointerActions()
	require.Len(t, actions, 1)
	var body struct {
		Actions []struct {
			Type       string
			Parameters map[string]string
			Actions    []struct {
				Type   string
				Origin map[string]string
				X, Y   int
			}
		}
	}
	require.NoError(t, json.Unmarshal(actions[0], &body))
	require.Len(t, body.Actions, 1)
	pointer := body.Actions[0]
	assert.Equal(t, "pointer", pointer.Type)
	assert.Equal(t, "mouse", pointer.Parameters["pointerType"])
	require.Len(t, pointer.Actions, 1)
	assert.Equal(t, "pointerMove", pointer.Actions[0].Type)
	assert.Equal(t, map[string]string{webElementKey: "company"}, pointer.Actions[0].Origin)
}

func TestFirefox_CommandSurfacesDriverError(t *testing.T) {
	g := newFakeGecko()
	s := dialFake(t, g)

	err := s.command(context.Background(), http.MethodPost, "moveto", map[string]any{})
	require.Error(t, err)

	var driverErr *selenium.Error
	require.True(t, errors.As(err, &driverErr), "got %T", err)
	assert.Equal(t, "unknown command", driverErr.Err)
	assert.Equal(t, http.StatusNotFound, driverErr.HTTPCode)
}

func TestFirefox_WaitForWindows(t *testing.T) {
	g := newFakeGecko()
	g.openAfter = 3
	s := dialFake(t, g)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	handles, err := s.WaitForWindows(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w2"}, handles)

	short, cancelShort := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancelShort()
	_, err = s.WaitForWindows(short, 3)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestFirefox_FindChild(t *testing.T) {
	g := newFakeGecko()
	row := &fakeNode{
		id:        "row",
		displayed: true,
		children: map[string]string{
			fmt.Sprintf("xpath %s", `.//p[contains(@class,"position-title")]`): "title",
		},
	}
	g.add("css selector", `[class~="position-list-item"]`, row)
	g.nodes["title"] = &fakeNode{id: "title", text: "Senior QA Engineer", displayed: true}
	s := dialFake(t, g)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rowEl, err := s.WaitFor(ctx, ClassName("position-list-item"), Present)
	require.NoError(t, err)

	title, err := rowEl.Find(ctx, XPath(`.//p[contains(@class,"position-title")]`))
	require.NoError(t, err)
	text, err := title.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Senior QA Engineer", text)

	_, err = rowEl.Find(ctx, XPath(`.//a[text()="View Role"]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuchElement))
}
