package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iyulab/impact-analyzer/internal/catalog"
	"github.com/iyulab/impact-analyzer/internal/logging"
	"github.com/iyulab/impact-analyzer/internal/server"
)

func strptr(s string) *string { return &s }

func testCatalogs() (*catalog.DefenseCatalog, *catalog.ScenarioCatalog) {
	defenses := &catalog.DefenseCatalog{Categories: []catalog.Category{{
		Name: "Access Control",
		Measures: []catalog.Measure{
			{ID: "1.1", Name: "RBAC", Type: "Policy"},
			{ID: "1.2", Name: "Admission", Type: "Config", SubMeasures: []catalog.Measure{{
				ID: "1.2.1", Name: "Pod Security", Type: "Config",
				Template: strptr("tmpl-url"),
				VersionStatus: catalog.VersionStatusMap{
					"1.20": {Status: catalog.StatusOK, Info: "doc-url"},
					"1.25": {Status: catalog.StatusDeprecated, Info: "gone-url"},
				},
			}}},
		},
	}}}
	scenarios := &catalog.ScenarioCatalog{Scenarios: []catalog.Scenario{
		{
			ID: catalog.NumberIdent("1"), Name: "RCE Exploitation",
			Tactics: catalog.Tactics{{
				Name: "Execution",
				Techniques: []catalog.Technique{{
					ID: catalog.StringIdent("T1"), Name: "Exec into container", Impact: catalog.ImpactFull,
					Defenses: []catalog.DefenseRef{{ID: "1.1"}, {ID: "1.2.1"}},
				}},
			}},
		},
		{
			ID: catalog.NumberIdent("2"), Name: "Broken",
			Tactics: catalog.Tactics{{
				Name: "Discovery",
				Techniques: []catalog.Technique{{
					ID: catalog.StringIdent("T2"), Name: "Bad", Impact: catalog.ImpactLow,
					Defenses: []catalog.DefenseRef{{ID: "9.9"}},
				}},
			}},
		},
	}}
	return defenses, scenarios
}

func startServer(t *testing.T, assetsDir string) string {
	t.Helper()
	defenses, scenarios := testCatalogs()
	srv := server.New(defenses, scenarios, server.Options{
		DefaultVersion: "1.20",
		AssetsDir:      assetsDir,
		HTMLTemplate:   "skeleton.html",
		Logger:         zerolog.Nop(),
	})
	addr, err := srv.Start(context.Background(), 0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return "http://" + addr
}

func writeAssets(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	skeleton := `<html><head><title>x</title></head><body></body></html>`
	if err := os.WriteFile(filepath.Join(dir, "skeleton.html"), []byte(skeleton), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func get(t *testing.T, url string) (int, string, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header.Get("Content-Type"), string(body)
}

func TestServer_HealthEndpoint(t *testing.T) {
	base := startServer(t, t.TempDir())
	status, _, body := get(t, base+"/health")
	if status != http.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
	if body != `{"status":"ok"}` {
		t.Errorf("unexpected body %q", body)
	}
}

func TestServer_ReportHTML(t *testing.T) {
	base := startServer(t, writeAssets(t))

	status, ctype, body := get(t, base+"/report?scenario=1&tactics=Execution")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if !strings.HasPrefix(ctype, "text/html") {
		t.Errorf("content type = %q", ctype)
	}
	for _, want := range []string{
		"Kubernetes defense report generated on",
		"Version 1.20",
		`<table id="table-T1">`,
		`<a href="tmpl-url">tmpl-url</a>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestServer_ReportVersionAndFormat(t *testing.T) {
	base := startServer(t, t.TempDir())

	status, ctype, body := get(t, base+"/report?scenario=1&version=1.25&format=txt")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if !strings.HasPrefix(ctype, "text/plain") {
		t.Errorf("content type = %q", ctype)
	}
	if !strings.Contains(body, "Measure is deprecated in version 1.25") {
		t.Errorf("expected deprecation line:\n%s", body)
	}

	status, ctype, body = get(t, base+"/report?scenario=1&format=json")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if ctype != "application/json" {
		t.Errorf("content type = %q", ctype)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc["name"] != "RCE Exploitation" {
		t.Errorf("name = %v", doc["name"])
	}
}

func TestServer_ReportErrors(t *testing.T) {
	base := startServer(t, t.TempDir())

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing scenario", "", http.StatusBadRequest},
		{"non-numeric scenario", "scenario=one", http.StatusBadRequest},
		{"unknown tactic", "scenario=1&tactics=Impact", http.StatusBadRequest},
		{"unknown format", "scenario=1&format=pdf", http.StatusBadRequest},
		{"stdout format", "scenario=1&format=stdout", http.StatusBadRequest},
		{"unknown scenario", "scenario=5&format=json", http.StatusNotFound},
		{"unresolvable reference", "scenario=2&format=json", http.StatusInternalServerError},
		{"html without assets", "scenario=1", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, body := get(t, base+"/report?"+tt.query)
			if status != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, status, body)
			}
		})
	}
}

func TestServer_ReportMethodNotAllowed(t *testing.T) {
	base := startServer(t, t.TempDir())
	resp, err := http.Post(base+"/report?scenario=1", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestServer_Templates(t *testing.T) {
	base := startServer(t, t.TempDir())

	tests := []struct {
		query string
		want  string
	}{
		{"", `[{"id":"1.2.1","name":"Pod Security","template":"tmpl-url"}]`},
		{"tactics=Execution", `[{"id":"1.2","name":"Admission","template":"tmpl-url"}]`},
		{"tactics=Collection", `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			status, _, body := get(t, base+"/templates?"+tt.query)
			if status != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", status, body)
			}
			if strings.TrimSpace(body) != tt.want {
				t.Errorf("got %s, want %s", body, tt.want)
			}
		})
	}

	status, _, _ := get(t, base+"/templates?tactics=Nope")
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown tactic, got %d", status)
	}
}

func TestServer_SetCatalogs(t *testing.T) {
	defenses, scenarios := testCatalogs()
	srv := server.New(defenses, scenarios, server.Options{DefaultVersion: "1.20", Logger: zerolog.Nop()})
	addr, err := srv.Start(context.Background(), 0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	renamed := &catalog.ScenarioCatalog{Scenarios: []catalog.Scenario{{ID: catalog.NumberIdent("1"), Name: "Reloaded"}}}
	srv.SetCatalogs(defenses, renamed)

	_, _, body := get(t, "http://"+addr+"/report?scenario=1&format=json")
	if !strings.Contains(body, `"Reloaded"`) {
		t.Errorf("expected reloaded catalog to be served, got %s", body)
	}
}

// syncBuffer is written by the server goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServer_RequestLog(t *testing.T) {
	var logs syncBuffer
	defenses, scenarios := testCatalogs()
	srv := server.New(defenses, scenarios, server.Options{
		DefaultVersion: "1.20",
		Logger:         zerolog.Nop(),
		RequestLog:     logging.NewJSONLogger(&logs, "debug", "run-1"),
	})
	addr, err := srv.Start(context.Background(), 0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	if status, _, _ := get(t, "http://"+addr+"/health"); status != http.StatusOK {
		t.Fatalf("health status = %d", status)
	}
	if status, _, _ := get(t, "http://"+addr+"/report?scenario=99&format=json"); status != http.StatusNotFound {
		t.Fatalf("report status = %d", status)
	}

	for i := 0; i < 100 && strings.Count(logs.String(), "\n") < 2; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 request lines, got %d:\n%s", len(lines), logs.String())
	}
	var entries []map[string]any
	for _, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("request line is not JSON: %q: %v", line, err)
		}
		entries = append(entries, entry)
	}

	health := entries[0]
	if health["path"] != "/health" || health["method"] != "GET" || health["status"] != float64(200) {
		t.Errorf("health line = %v", health)
	}
	if health["run_id"] != "run-1" || health["component"] != logging.Component || health["level"] != "debug" {
		t.Errorf("health line missing context fields: %v", health)
	}
	if _, ok := health["duration"]; !ok {
		t.Errorf("health line has no duration: %v", health)
	}

	missing := entries[1]
	if missing["path"] != "/report" || missing["query"] != "scenario=99&format=json" || missing["status"] != float64(404) {
		t.Errorf("report line = %v", missing)
	}
}

func TestServer_StopsWithContext(t *testing.T) {
	defenses, scenarios := testCatalogs()
	srv := server.New(defenses, scenarios, server.Options{Logger: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	addr, err := srv.Start(ctx, 0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	// The listener closes asynchronously; poll until connections are refused.
	for i := 0; i < 100; i++ {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return
		}
		resp.Body.Close()
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("server still accepting connections after context cancellation")
}
