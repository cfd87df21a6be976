package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "program.scm")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("unable to write fixture source: %v", err)
	}
	return path
}

func TestHandlerWritesAssemblyFile(t *testing.T) {
	input := writeSource(t, "(display (+ 2 3))")
	base := strings.TrimSuffix(input, filepath.Ext(input))

	status := Handler([]string{input}, map[string]string{})
	if status != 0 {
		t.Fatalf("unexpected exit status: got %d", status)
	}

	content, err := os.ReadFile(base + ".asm")
	if err != nil {
		t.Fatalf("expected assembly output file: %v", err)
	}
	if !strings.Contains(string(content), "L_constants:") {
		t.Errorf("expected generated assembly to contain the constants table label")
	}
}

func TestHandlerRejectsUnreadableInput(t *testing.T) {
	status := Handler([]string{filepath.Join(t.TempDir(), "missing.scm")}, map[string]string{})
	if status == 0 {
		t.Fatalf("expected a non-zero exit status for a missing input file")
	}
}

func TestHandlerHonorsOutputOption(t *testing.T) {
	input := writeSource(t, "(display 1)")
	outBase := filepath.Join(filepath.Dir(input), "custom")

	status := Handler([]string{input}, map[string]string{"output": outBase})
	if status != 0 {
		t.Fatalf("unexpected exit status: got %d", status)
	}
	if _, err := os.Stat(outBase + ".asm"); err != nil {
		t.Fatalf("expected output at %s.asm: %v", outBase, err)
	}
}
