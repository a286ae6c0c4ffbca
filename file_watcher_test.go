package reflux

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWatcher_EmitsInitialAndChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "http.yaml")
	if err := os.WriteFile(path, []byte("base_url: https://a.example.com\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := NewFileWatcher(path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	select {
	case v := <-out:
		if string(v) != "base_url: https://a.example.com\n" {
			t.Errorf("unexpected initial contents %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for initial contents")
	}

	if err := os.WriteFile(path, []byte("base_url: https://b.example.com\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-out:
			if string(v) == "base_url: https://b.example.com\n" {
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for change")
		}
	}
}

func TestFileWatcher_MissingFile(t *testing.T) {
	_, err := NewFileWatcher(filepath.Join(t.TempDir(), "missing.yaml")).Watch(context.Background())
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileWatcher_Path(t *testing.T) {
	if p := NewFileWatcher("/etc/app/http.yaml").Path(); p != "/etc/app/http.yaml" {
		t.Errorf("unexpected path %q", p)
	}
}
