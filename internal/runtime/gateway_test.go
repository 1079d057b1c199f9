package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGateway_New_Defaults(t *testing.T) {
	gw, err := New(WithMemoryStore())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if gw.cfg == nil {
		t.Fatal("expected config to be loaded from environment")
	}
	if gw.cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", gw.cfg.Server.Port)
	}
	if len(gw.cfg.RateLimit.Tiers) == 0 {
		t.Error("expected default rate-limit tiers")
	}
	if gw.store == nil {
		t.Error("expected store to be set")
	}
}

func TestGateway_New_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
server:
  port: 18090
  version: test
storage:
  type: sqlite
  sqlite:
    path: ` + filepath.Join(tmpDir, "test.db") + `
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}

	gw, err := New(WithConfigFile(configPath))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if gw.cfg.Server.Port != 18090 {
		t.Errorf("port = %d, want 18090", gw.cfg.Server.Port)
	}
	if gw.cfg.Storage.Type != "sqlite" {
		t.Errorf("storage type = %q, want sqlite", gw.cfg.Storage.Type)
	}
	if gw.store == nil {
		t.Error("expected sqlite store to be created")
	}
	if err := gw.store.Close(); err != nil {
		t.Errorf("close store: %v", err)
	}
}

func TestGateway_Start_And_Shutdown(t *testing.T) {
	gw, err := New(WithMemoryStore())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	gw.cfg.Server.Port = 18091

	ctx := context.Background()
	if err := gw.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/healthz", gw.cfg.Server.Port))
	if err != nil {
		t.Fatalf("healthz request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
	var summary struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if summary.Status == "" {
		t.Error("healthz summary missing status")
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gw.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}
