// Package localproject reads baseline file contents and derives static
// heuristics from a local checkout of the project under review.
package localproject

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ContextError indicates a local file could not be provided as context.
// It is always recoverable: the analysis proceeds with reduced context.
type ContextError struct {
	Path string
	Err  error
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("local context: %s: %v", e.Path, e.Err)
}

func (e *ContextError) Unwrap() error {
	return e.Err
}

// Reader provides path-traversal-safe access to a project checkout
type Reader struct {
	basePath string
}

// NewReader creates a reader rooted at projectPath
func NewReader(projectPath string) (*Reader, error) {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("local project path is not a directory: %s", abs)
	}
	return &Reader{basePath: abs}, nil
}

// BasePath returns the resolved project root
func (r *Reader) BasePath() string {
	return r.basePath
}

// resolve maps a forward-slash relative path (as found in diffs) onto
// the local filesystem, refusing anything that escapes the project root
func (r *Reader) resolve(relativePath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(relativePath))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("path escapes project root: %s", relativePath)
	}
	return filepath.Join(r.basePath, cleaned), nil
}

// ReadFile returns the content of a file inside the project. Failures
// come back as *ContextError so callers can degrade instead of abort.
func (r *Reader) ReadFile(relativePath string) (string, error) {
	path, err := r.resolve(relativePath)
	if err != nil {
		return "", &ContextError{Path: relativePath, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ContextError{Path: relativePath, Err: err}
	}
	return string(data), nil
}

// FileExists reports whether a file exists inside the project
func (r *Reader) FileExists(relativePath string) bool {
	path, err := r.resolve(relativePath)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DirectoryExists reports whether a directory exists inside the project
func (r *Reader) DirectoryExists(relativePath string) bool {
	path, err := r.resolve(relativePath)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FindFiles returns relative paths (forward slashes) of files whose
// base name matches the glob pattern, searching recursively
func (r *Reader) FindFiles(pattern string) []string {
	var matches []string
	filepath.WalkDir(r.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			if rel, relErr := filepath.Rel(r.basePath, path); relErr == nil {
				matches = append(matches, filepath.ToSlash(rel))
			}
		}
		return nil
	})
	return matches
}

// testDirIndicators are directory names that signal a test suite
var testDirIndicators = []string{"tests", "test", "spec", "__tests__"}

// HasTestIndicators reports whether the project appears to carry a
// test suite, judged by conventional test directories or test files
func (r *Reader) HasTestIndicators() bool {
	for _, dir := range testDirIndicators {
		if r.DirectoryExists(dir) {
			return true
		}
	}
	if len(r.FindFiles("*_test.go")) > 0 {
		return true
	}
	if len(r.FindFiles("test_*.py")) > 0 {
		return true
	}
	return false
}

// frameworkMarkers maps a dependency manifest to the test frameworks
// detectable inside it
var frameworkMarkers = []struct {
	manifest   string
	framework  string
	dependency string
}{
	{"go.mod", "testify", "github.com/stretchr/testify"},
	{"requirements.txt", "pytest", "pytest"},
	{"pyproject.toml", "pytest", "pytest"},
	{"package.json", "jest", "\"jest\""},
	{"package.json", "mocha", "\"mocha\""},
	{"pom.xml", "junit", "junit"},
	{"Gemfile", "rspec", "rspec"},
}

// TestFrameworkHint names the test framework the project depends on,
// or returns the empty string when none is recognized
func (r *Reader) TestFrameworkHint() string {
	for _, marker := range frameworkMarkers {
		if !r.FileExists(marker.manifest) {
			continue
		}
		content, err := r.ReadFile(marker.manifest)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(content), strings.ToLower(marker.dependency)) {
			return marker.framework
		}
	}
	if len(r.FindFiles("*_test.go")) > 0 {
		return "go test"
	}
	return ""
}
