package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iyulab/impact-analyzer/internal/config"
	"github.com/iyulab/impact-analyzer/internal/orchestrator"
	"github.com/iyulab/impact-analyzer/internal/server"
)

func fetchReport(t *testing.T, addr string) string {
	t.Helper()
	resp, err := http.Get("http://" + addr + "/report?scenario=1&format=json")
	if err != nil {
		t.Fatalf("GET /report: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /report status %d: %s", resp.StatusCode, body)
	}
	return string(body)
}

func TestReloadCatalogs(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "init", "--dir", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	scenarioPath := filepath.Join(dir, "scenario_impact_analysis.json")

	cfg := config.Default()
	cfg.Catalog.Defense = filepath.Join(dir, "defense_measures.json")
	cfg.Catalog.Scenarios = scenarioPath

	cats, err := orchestrator.LoadCatalogs(cfg)
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	srv := server.New(cats.Defenses, cats.Scenarios, server.Options{DefaultVersion: "1.20", Logger: zerolog.Nop()})
	addr, err := srv.Start(context.Background(), 0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	if body := fetchReport(t, addr); !strings.Contains(body, `"name": "RCE Exploitation"`) {
		t.Fatalf("unexpected initial report:\n%s", body)
	}

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`{"Scenarios": [`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Catalog.Scenarios = broken
	if err := reloadCatalogs(cfg, srv); err == nil {
		t.Fatal("expected reload of a broken catalog to fail")
	}
	if body := fetchReport(t, addr); !strings.Contains(body, `"name": "RCE Exploitation"`) {
		t.Errorf("failed reload should keep the previous catalogs:\n%s", body)
	}

	cfg.Catalog.Scenarios = filepath.Join(dir, "missing.json")
	if err := reloadCatalogs(cfg, srv); err == nil {
		t.Fatal("expected reload of a missing catalog to fail")
	}

	data, err := os.ReadFile(scenarioPath)
	if err != nil {
		t.Fatal(err)
	}
	revised := strings.Replace(string(data), `"RCE Exploitation"`, `"RCE Exploitation (revised)"`, 1)
	if err := os.WriteFile(scenarioPath, []byte(revised), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Catalog.Scenarios = scenarioPath
	if err := reloadCatalogs(cfg, srv); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if body := fetchReport(t, addr); !strings.Contains(body, `"name": "RCE Exploitation (revised)"`) {
		t.Errorf("successful reload should serve the new catalogs:\n%s", body)
	}
}
