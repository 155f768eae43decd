package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vigil.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestValidateConfigAcceptsGoodFile(t *testing.T) {
	path := writeTempConfig(t, "include:\n  - \"*.rs\"\non_change: cargo check\n")
	out := &strings.Builder{}
	errOut := &strings.Builder{}

	if code := runValidateConfig([]string{path}, out, errOut); code != 0 {
		t.Fatalf("expected success, got %d stderr=%q", code, errOut.String())
	}
	if !strings.Contains(out.String(), "OK") {
		t.Fatalf("expected OK output, got %q", out.String())
	}
}

func TestValidateConfigRejectsBadGlob(t *testing.T) {
	path := writeTempConfig(t, "include:\n  - \"src/[unclosed\"\n")
	out := &strings.Builder{}
	errOut := &strings.Builder{}

	if code := runValidateConfig([]string{path}, out, errOut); code != 1 {
		t.Fatalf("expected failure, got %d", code)
	}
	if errOut.Len() == 0 {
		t.Fatal("expected an error message")
	}
}

func TestValidateConfigRejectsBadTemplate(t *testing.T) {
	path := writeTempConfig(t, "on_create: 'echo \"unterminated'\n")
	out := &strings.Builder{}
	errOut := &strings.Builder{}

	if code := runValidateConfig([]string{path}, out, errOut); code != 1 {
		t.Fatalf("expected failure, got %d", code)
	}
}

func TestValidateConfigUsage(t *testing.T) {
	errOut := &strings.Builder{}
	if code := runValidateConfig(nil, &strings.Builder{}, errOut); code != 1 {
		t.Fatal("expected usage failure without a file argument")
	}
	if !strings.Contains(errOut.String(), "usage:") {
		t.Fatalf("expected usage message, got %q", errOut.String())
	}
}
