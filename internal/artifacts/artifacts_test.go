//go:build !integration
// +build !integration

package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testData() Data {
	return Data{
		RootDir:     "/srv/console",
		Executable:  "/usr/local/bin/consolectl",
		Version:     "1.2.3",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRender_AllBaseline(t *testing.T) {
	for _, a := range Baseline {
		t.Run(a.Name, func(t *testing.T) {
			out, err := Render(a.Name, testData())
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			s := string(out)
			for _, want := range []string{"/srv/console", "/usr/local/bin/consolectl", "1.2.3", "2026-01-02 03:04:05"} {
				if !strings.Contains(s, want) {
					t.Errorf("rendered %s missing %q", a.Name, want)
				}
			}
		})
	}
}

func TestRender_Unknown(t *testing.T) {
	if _, err := Render("nope.ps1", testData()); err == nil {
		t.Error("Render(unknown) error = nil")
	}
}

func TestWrite_ReplacesFile(t *testing.T) {
	dir := t.TempDir()
	a, ok := Lookup("healthcheck.sh")
	if !ok {
		t.Fatal("Lookup(healthcheck.sh) failed")
	}
	path := filepath.Join(dir, a.Name)
	if err := os.WriteFile(path, []byte("corrupted"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Write(dir, a, testData())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got != path {
		t.Errorf("Write() path = %q, want %q", got, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "#!/bin/sh") {
		t.Errorf("file not replaced:\n%s", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (temp file left behind?)", len(entries))
	}
}

func TestNames(t *testing.T) {
	if len(Names()) != len(Baseline) {
		t.Errorf("Names() = %v", Names())
	}
	if _, ok := Lookup("missing"); ok {
		t.Error("Lookup(missing) = true")
	}
}
