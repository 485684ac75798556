// Package fixturesite serves a local replica of the Insider pages the
// browser suites walk through: home, careers, the QA careers page, the
// open positions board and per-role Lever pages.
package fixturesite

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/insider-e2e/internal/common"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	HomeTitle      = "#1 Leader in Individualized, Cross-Channel CX — Insider"
	CareersTitle   = "Ready to disrupt? | Insider Careers"
	QACareersTitle = "Insider quality assurance job opportunities"
	PositionsTitle = "Insider Open Positions | Insider"

	QACareersPath = "/careers/quality-assurance/"
)

// Config holds server configuration options.
type Config struct {
	Addr         string        // Listen address (":0" picks a free port)
	ReadTimeout  time.Duration // HTTP read timeout
	WriteTimeout time.Duration // HTTP write timeout
	// DepartmentDelay is how long the open positions page takes to fill the
	// department filter, mimicking the live select2 initialisation.
	DepartmentDelay time.Duration
	Jobs            []Job
}

// DefaultConfig returns a configuration suitable for testing.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:0",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		DepartmentDelay: 300 * time.Millisecond,
		Jobs:            DefaultJobs(),
	}
}

// Server is an importable HTTP server for the fixture pages.
type Server struct {
	cfg        Config
	logger     arbor.ILogger
	templates  *template.Template
	httpServer *http.Server
	addr       string
	mu         sync.Mutex
	running    bool
}

// NewServer creates a new server with the given configuration.
// The server is not started until Start() is called.
func NewServer(cfg Config, logger arbor.ILogger) (*Server, error) {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	if cfg.Jobs == nil {
		cfg.Jobs = DefaultJobs()
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture templates: %w", err)
	}

	s := &Server{cfg: cfg, logger: logger, templates: templates}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /careers/{$}", s.handleCareers)
	mux.HandleFunc("GET "+QACareersPath+"{$}", s.handleQACareers)
	mux.HandleFunc("GET /careers/open-positions/{$}", s.handleOpenPositions)
	mux.HandleFunc("GET /jobs.lever.co/useinsider/{id}", s.handleLever)
	mux.HandleFunc("GET /status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.logRequests(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Handler exposes the routes for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and serving HTTP requests.
// Returns the actual address the server is listening on (useful when port is 0).
// This method is non-blocking - the server runs in a goroutine.
func (s *Server) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.addr, nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.addr = ln.Addr().String()
	s.running = true

	common.SafeGo(s.logger, "fixturesite", func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Str("addr", ln.Addr().String()).Msg("Fixture site stopped")
		}
	})

	s.logger.Info().Str("url", "http://"+s.addr+"/").Msg("Fixture site listening")
	return s.addr, nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the address the server is listening on.
// Returns empty string if server is not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// URL returns the base URL with a trailing slash, or "" before Start.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr + "/"
}

// QACareersURL returns the URL of the QA careers page, or "" before Start.
func (s *Server) QACareersURL() string {
	base := s.URL()
	if base == "" {
		return ""
	}
	return strings.TrimSuffix(base, "/") + QACareersPath
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("Fixture request")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error().
			Err(err).
			Str("template", name).
			Msg("Failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, "home.html", map[string]any{"Title": HomeTitle})
}

func (s *Server) handleCareers(w http.ResponseWriter, r *http.Request) {
	s.render(w, "careers.html", map[string]any{"Title": CareersTitle})
}

func (s *Server) handleQACareers(w http.ResponseWriter, r *http.Request) {
	s.render(w, "quality_assurance.html", map[string]any{
		"Title":          QACareersTitle,
		"DepartmentSlug": Slug("Quality Assurance"),
	})
}

func (s *Server) handleOpenPositions(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("department")
	s.render(w, "open_positions.html", map[string]any{
		"Title":             PositionsTitle,
		"Department":        DepartmentName(s.cfg.Jobs, slug),
		"DepartmentDelayMs": s.cfg.DepartmentDelay.Milliseconds(),
		"Locations":         Locations(s.cfg.Jobs),
		"Jobs":              FilterJobs(s.cfg.Jobs, slug, ""),
		"AllJobs":           s.cfg.Jobs,
	})
}

func (s *Server) handleLever(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, j := range s.cfg.Jobs {
		if j.ID == id {
			s.render(w, "lever.html", map[string]any{
				"Title": "Insider. - " + j.Title,
				"Job":   j,
			})
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","server":"fixturesite","timestamp":%q}`, time.Now().Format(time.RFC3339))
}
