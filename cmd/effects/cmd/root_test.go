package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestExitCode(t *testing.T) {
	if got := ExitCode(errors.New("boom")); got != 1 {
		t.Errorf("plain error: expected 1, got %d", got)
	}
	if got := ExitCode(fail(2, "bad flag")); got != 2 {
		t.Errorf("usage error: expected 2, got %d", got)
	}
	wrapped := fmt.Errorf("outer: %w", fail(3, "inner"))
	if got := ExitCode(wrapped); got != 3 {
		t.Errorf("wrapped error: expected 3, got %d", got)
	}
}

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	doc := `{"document_id":"d","segments":[{"id":0,"chapter":1,"text_length":10,"active_theme_id":"general"}],
		"profiles":[{"id":"ann","archetypes":["sage"]}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	in, err := loadDocument(path)
	if err != nil {
		t.Fatalf("loadDocument: %v", err)
	}
	if in.ID != "d" || len(in.Segments) != 1 || len(in.Profiles) != 1 {
		t.Errorf("unexpected input: %+v", in)
	}

	if _, err := loadDocument(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing document")
	}
}

func TestDefaultLoaders(t *testing.T) {
	configPath, registryPath = "", ""
	if _, err := loadConfig(); err != nil {
		t.Errorf("default config: %v", err)
	}
	if _, err := loadRegistry(); err != nil {
		t.Errorf("default registry: %v", err)
	}
}
