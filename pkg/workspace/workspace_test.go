package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrepareCreatesGitignore(t *testing.T) {
	w := New(t.TempDir())

	dir, err := w.Prepare("deploy-1")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf("read .gitignore: %v", err)
	}
	for _, entry := range []string{".terraform/", "*.tfstate"} {
		if !strings.Contains(string(data), entry) {
			t.Errorf(".gitignore missing %q", entry)
		}
	}
}

func TestPrepareIdempotent(t *testing.T) {
	w := New(t.TempDir())

	dir, err := w.Prepare("deploy-1")
	if err != nil {
		t.Fatalf("first Prepare: %v", err)
	}

	// A customized .gitignore survives a second Prepare.
	custom := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(custom, []byte("custom\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := w.Prepare("deploy-1"); err != nil {
		t.Fatalf("second Prepare: %v", err)
	}
	data, err := os.ReadFile(custom)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "custom\n" {
		t.Errorf(".gitignore overwritten: %q", data)
	}
}

func TestWriteTemplateVerbatim(t *testing.T) {
	w := New(t.TempDir())
	content := "resource \"null_resource\" \"a\" {\n\n  triggers = {}\n}\n"

	path, err := w.WriteTemplate("deploy-1", content)
	if err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	if filepath.Base(path) != TemplateFileName {
		t.Errorf("template written as %q, want %q", filepath.Base(path), TemplateFileName)
	}

	got, err := w.ReadTemplate("deploy-1")
	if err != nil {
		t.Fatalf("ReadTemplate: %v", err)
	}
	if got != content {
		t.Errorf("round trip changed content:\nwrote %q\nread  %q", content, got)
	}
}

func TestSafeJoinRejectsEscapes(t *testing.T) {
	w := New(t.TempDir())

	for _, id := range []string{"", "..", "../outside", "/etc/passwd", "a/../../b"} {
		if _, err := w.Prepare(id); err == nil {
			t.Errorf("Prepare(%q) succeeded, want error", id)
		}
	}
}

func TestDirDoesNotCreate(t *testing.T) {
	w := New(t.TempDir())

	dir, err := w.Dir("deploy-9")
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("Dir created %q", dir)
	}
}
