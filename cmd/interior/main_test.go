package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"InteriorEditor/pkg/config"
	"InteriorEditor/pkg/editor"
)

func TestResolveMode(t *testing.T) {
	tests := []struct {
		name       string
		flagMode   string
		configMode string
		image      string
		want       editor.Mode
		wantErr    bool
	}{
		{"config default", "", "create", "", editor.ModeCreate, false},
		{"config edit", "", "edit", "", editor.ModeEdit, false},
		{"image implies edit", "", "create", "room.jpg", editor.ModeEdit, false},
		{"flag wins over image", "create", "edit", "room.jpg", editor.ModeCreate, false},
		{"bad flag", "paint", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveMode(tt.flagMode, tt.configMode, tt.image)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveMode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveMode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunFlags(t *testing.T) {
	if code := run([]string{"-version"}); code != 0 {
		t.Errorf("run(-version) = %d, want 0", code)
	}
	if code := run([]string{"-help"}); code != 0 {
		t.Errorf("run(-help) = %d, want 0", code)
	}
	if code := run([]string{"-no-such-flag"}); code != 2 {
		t.Errorf("run(-no-such-flag) = %d, want 2", code)
	}
	if code := run([]string{"-config", filepath.Join(t.TempDir(), "missing.json")}); code != 1 {
		t.Errorf("run with missing config = %d, want 1", code)
	}
}

// writeConfig stores a config pointing at baseURL and returns its path.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	logFile := filepath.Join(dir, "interior.log")
	t.Setenv("INTERIOR_BASE_URL", baseURL)
	t.Setenv("INTERIOR_LOG_FILE", logFile)
	cfg := config.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Log.File = logFile
	cfg.Progress.SettleMS = 10
	path := filepath.Join(dir, "config.json")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return path
}

func TestRunOneShot(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/generate":
			w.Header().Set("Content-Type", "application/json")
			if r.FormValue("prompt") == "fail" {
				_, _ = w.Write([]byte(`{"error":"model crashed"}`))
				return
			}
			_, _ = w.Write([]byte(`{"image_path":"/out/room.png"}`))
		case "/images/room.png":
			_, _ = w.Write(png)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfgPath := writeConfig(t, srv.URL)
	outDir := t.TempDir()

	if code := run([]string{"-config", cfgPath, "-prompt", "a calm loft", "-out", outDir}); code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "room.png"))
	if err != nil {
		t.Fatalf("saved image: %v", err)
	}
	if string(data) != string(png) {
		t.Errorf("saved image = %q, want %q", data, png)
	}

	if code := run([]string{"-config", cfgPath, "-prompt", "fail"}); code != 1 {
		t.Errorf("run() with server error = %d, want 1", code)
	}
	if code := run([]string{"-config", cfgPath, "-prompt", "x", "-mode", "paint"}); code != 1 {
		t.Errorf("run() with bad mode = %d, want 1", code)
	}
}
