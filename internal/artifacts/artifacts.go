// Package artifacts renders the baseline scripts kept under <root>/scripts
// from templates embedded in the binary.
package artifacts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("artifacts").ParseFS(templateFS, "templates/*.tmpl"))

// Artifact is one generated file.
type Artifact struct {
	Name string
	Mode fs.FileMode
}

// Baseline lists the artifacts every console installation carries.
var Baseline = []Artifact{
	{Name: "connect-services.ps1", Mode: 0o755},
	{Name: "run-report.ps1", Mode: 0o755},
	{Name: "healthcheck.sh", Mode: 0o755},
}

// Names returns the baseline artifact file names.
func Names() []string {
	names := make([]string, 0, len(Baseline))
	for _, a := range Baseline {
		names = append(names, a.Name)
	}
	return names
}

// Lookup returns the baseline artifact with the given name.
func Lookup(name string) (Artifact, bool) {
	for _, a := range Baseline {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

// Data is the template input.
type Data struct {
	RootDir     string
	Executable  string
	Version     string
	GeneratedAt time.Time
}

// Render executes the template for name.
func Render(name string, data Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Write renders a into dir, replacing any existing file atomically.
func Write(dir string, a Artifact, data Data) (string, error) {
	content, err := Render(a.Name, data)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, a.Name)
	tmp, err := os.CreateTemp(dir, "."+a.Name+".*")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", a.Name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", a.Name, err)
	}
	if err := tmp.Chmod(a.Mode); err != nil {
		tmp.Close()
		return "", fmt.Errorf("chmod %s: %w", a.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", a.Name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("replace %s: %w", a.Name, err)
	}
	return path, nil
}
