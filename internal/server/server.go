// Package server serves rendered reports and template lists over local HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iyulab/impact-analyzer/internal/catalog"
	"github.com/iyulab/impact-analyzer/internal/output"
	"github.com/iyulab/impact-analyzer/internal/report"
	"github.com/iyulab/impact-analyzer/internal/reporter"
	"github.com/iyulab/impact-analyzer/internal/resolver"
	"github.com/iyulab/impact-analyzer/internal/templates"
)

// Options configures request defaults.
// RequestLog receives one line per request at debug level; the zero value
// discards them.
type Options struct {
	DefaultVersion string
	AssetsDir      string
	HTMLTemplate   string
	Logger         zerolog.Logger
	RequestLog     zerolog.Logger
}

// Server is a local HTTP server that assembles a fresh report per request
// over a shared pair of catalogs.
type Server struct {
	mu        sync.RWMutex
	defenses  *catalog.DefenseCatalog
	scenarios *catalog.ScenarioCatalog

	opts       Options
	httpServer *http.Server
}

// New creates a Server over the given catalogs.
func New(defenses *catalog.DefenseCatalog, scenarios *catalog.ScenarioCatalog, opts Options) *Server {
	return &Server{
		defenses:  defenses,
		scenarios: scenarios,
		opts:      opts,
	}
}

// SetCatalogs swaps the catalogs used by subsequent requests (thread-safe).
func (s *Server) SetCatalogs(defenses *catalog.DefenseCatalog, scenarios *catalog.ScenarioCatalog) {
	s.mu.Lock()
	s.defenses, s.scenarios = defenses, scenarios
	s.mu.Unlock()
}

func (s *Server) catalogs() (*catalog.DefenseCatalog, *catalog.ScenarioCatalog) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defenses, s.scenarios
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/templates", s.handleTemplates)
	return s.logRequests(mux)
}

// Start begins listening on the given port (0 = OS-assigned). Returns "host:port".
// The server is closed when ctx is done.
func (s *Server) Start(ctx context.Context, port int) (string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}

	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go s.httpServer.Serve(ln) //nolint:errcheck
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return ln.Addr().String(), nil
}

// Stop shuts down the server.
func (s *Server) Stop() {
	if s.httpServer != nil {
		s.httpServer.Close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handleReport serves /report?scenario=N&tactics=A,B&version=V&format=html|json|txt.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()

	number, err := strconv.Atoi(q.Get("scenario"))
	if err != nil {
		http.Error(w, "scenario must be a number", http.StatusBadRequest)
		return
	}
	sel, err := parseTactics(q.Get("tactics"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	version := q.Get("version")
	if version == "" {
		version = s.opts.DefaultVersion
	}
	format := q.Get("format")
	if format == "" {
		format = reporter.FormatHTML
	}
	if format == reporter.FormatStdout {
		http.Error(w, "format stdout is not available over HTTP", http.StatusBadRequest)
		return
	}

	var ropts reporter.Options
	if format == reporter.FormatHTML {
		path, err := output.CheckAssets(s.opts.AssetsDir, s.opts.HTMLTemplate)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		ropts.SkeletonPath = path
	}
	renderer, err := reporter.New(format, ropts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	defenses, scenarios := s.catalogs()
	tree, err := report.NewAssembler(scenarios, resolver.New(defenses)).Build(number, sel)
	switch {
	case errors.Is(err, report.ErrUnknownScenario):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		s.opts.Logger.Error().Err(err).Int("scenario", number).Msg("report assembly failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	body, err := reporter.RenderString(renderer, tree, version)
	if err != nil {
		http.Error(w, fmt.Sprintf("render failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	io.WriteString(w, body) //nolint:errcheck
}

type templateEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template"`
}

// handleTemplates serves /templates?tactics=A,B as a JSON array in dotted id order.
func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sel, err := parseTactics(r.URL.Query().Get("tactics"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	defenses, scenarios := s.catalogs()
	found := templates.New(defenses, scenarios).Collect(sel)

	entries := make([]templateEntry, 0, len(found))
	for _, id := range templates.Keys(found) {
		entries = append(entries, templateEntry{ID: id, Name: found[id].Name, Template: found[id].Template})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries) //nolint:errcheck
}

// parseTactics parses a comma-separated tactic list; empty selects all.
func parseTactics(raw string) (report.Selection, error) {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !report.IsValidTactic(name) {
			return report.Selection{}, fmt.Errorf("unknown tactic %q", name)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return report.AllTactics(), nil
	}
	return report.Tactics(names...), nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.opts.RequestLog.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
