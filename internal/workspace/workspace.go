// Package workspace manages the ~/.archsmith/ directory hierarchy.
//
// Directory layout:
//
//	~/.archsmith/<workspace>/
//	    facts.yaml                   # toolchain and library facts
//	    arch/<tag>.<variant>         # synthesized arch files
//	    reports/<tag>.<variant>.md   # regression verdict reports
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"archsmith/internal/facts"
)

const (
	factsFile  = "facts.yaml"
	archDir    = "arch"
	reportsDir = "reports"
)

// Workspace is a named archsmith workspace directory (~/.archsmith/<name>/).
type Workspace struct {
	Name string
	Dir  string
}

// baseDir returns the ~/.archsmith directory.
func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".archsmith"), nil
}

// Init creates ~/.archsmith/<name>/ with f as its facts file and errors if
// the workspace already exists.
func Init(name string, f *facts.Facts) (*Workspace, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid workspace name %q", name)
	}
	base, err := baseDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(base, name)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("workspace %q already exists at %s", name, dir)
	}
	for _, d := range []string{dir, filepath.Join(dir, archDir), filepath.Join(dir, reportsDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace: %w", err)
		}
	}
	w := &Workspace{Name: name, Dir: dir}
	if err := w.SaveFacts(f); err != nil {
		return nil, err
	}
	return w, nil
}

// Open opens an existing workspace. Returns an error if not found.
func Open(name string) (*Workspace, error) {
	base, err := baseDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(base, name)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("workspace %q not found (run 'archsmith init %s' first)", name, name)
	}
	return &Workspace{Name: name, Dir: dir}, nil
}

// List returns the names of all workspaces under ~/.archsmith/.
func List() ([]string, error) {
	base, err := baseDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archsmith dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Remove deletes a workspace and all its contents.
func Remove(name string) error {
	w, err := Open(name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}

// FactsPath returns the facts file path.
func (w *Workspace) FactsPath() string {
	return filepath.Join(w.Dir, factsFile)
}

// SaveFacts writes f as the workspace facts file.
func (w *Workspace) SaveFacts(f *facts.Facts) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(w.FactsPath(), data, 0o644); err != nil {
		return fmt.Errorf("write facts: %w", err)
	}
	return nil
}

// LoadFacts reads the facts file together with the process environment.
func (w *Workspace) LoadFacts() (*facts.Facts, error) {
	return facts.Load(w.FactsPath())
}

// ArchPath returns the path of the arch file called name.
func (w *Workspace) ArchPath(name string) string {
	return filepath.Join(w.Dir, archDir, name)
}

// WriteArch stores a synthesized arch file and returns its path. An existing
// file with the same name is replaced.
func (w *Workspace) WriteArch(name, text string) (string, error) {
	path := w.ArchPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create arch dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write arch file: %w", err)
	}
	return path, nil
}

// ListArch returns the stored arch file names, sorted.
func (w *Workspace) ListArch() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(w.Dir, archDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read arch dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// WriteReport stores a verdict report for the arch file called name and
// returns its path.
func (w *Workspace) WriteReport(name string, data []byte) (string, error) {
	dir := filepath.Join(w.Dir, reportsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	path := w.ReportPath(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// ReportPath returns the path of the report for the arch file called name.
func (w *Workspace) ReportPath(name string) string {
	return filepath.Join(w.Dir, reportsDir, name+".md")
}

// ListReports returns the arch file names that have a stored report, sorted.
func (w *Workspace) ListReports() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(w.Dir, reportsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reports dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, strings.TrimSuffix(e.Name(), ".md"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadReport returns the stored report for the arch file called name.
func (w *Workspace) ReadReport(name string) ([]byte, error) {
	data, err := os.ReadFile(w.ReportPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no report for %q in workspace %q (run 'archsmith regtest' first)", name, w.Name)
		}
		return nil, fmt.Errorf("read report: %w", err)
	}
	return data, nil
}

// Install copies every stored arch file into srcDir/arch/, where the build
// system looks for them. Existing files are overwritten.
func (w *Workspace) Install(srcDir string) ([]string, error) {
	names, err := w.ListArch()
	if err != nil {
		return nil, err
	}
	target := filepath.Join(srcDir, archDir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", target, err)
	}
	paths := make([]string, 0, len(names))
	for _, n := range names {
		dst := filepath.Join(target, n)
		if err := copyFile(w.ArchPath(n), dst); err != nil {
			return nil, fmt.Errorf("install %s: %w", n, err)
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

// copyFile copies a single file from src to dst, preserving permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
