package localproject

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProject(t *testing.T, files map[string]string) *Reader {
	t.Helper()
	dir := t.TempDir()
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	reader, err := NewReader(dir)
	require.NoError(t, err)
	return reader
}

func TestNewReaderRejectsNonDirectory(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	reader := newTestProject(t, map[string]string{
		"src/main.go": "package main\n",
	})

	content, err := reader.ReadFile("src/main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", content)
}

func TestReadFileMissingReturnsContextError(t *testing.T) {
	reader := newTestProject(t, nil)

	_, err := reader.ReadFile("nope.go")
	require.Error(t, err)

	var ctxErr *ContextError
	require.ErrorAs(t, err, &ctxErr)
	assert.Equal(t, "nope.go", ctxErr.Path)
}

func TestReadFileRejectsEscapes(t *testing.T) {
	reader := newTestProject(t, nil)

	for _, path := range []string{"../outside.txt", "a/../../outside.txt", "/etc/passwd"} {
		_, err := reader.ReadFile(path)
		assert.Error(t, err, "path %q must be rejected", path)
	}
}

func TestFindFiles(t *testing.T) {
	reader := newTestProject(t, map[string]string{
		"pkg/a_test.go":        "",
		"pkg/deep/b_test.go":   "",
		"pkg/helper.go":        "",
	})

	matches := reader.FindFiles("*_test.go")
	assert.ElementsMatch(t, []string{"pkg/a_test.go", "pkg/deep/b_test.go"}, matches)
}

func TestHasTestIndicators(t *testing.T) {
	t.Run("tests directory", func(t *testing.T) {
		reader := newTestProject(t, map[string]string{"tests/test_app.py": ""})
		assert.True(t, reader.HasTestIndicators())
	})

	t.Run("go test files", func(t *testing.T) {
		reader := newTestProject(t, map[string]string{"pkg/thing_test.go": ""})
		assert.True(t, reader.HasTestIndicators())
	})

	t.Run("python test files", func(t *testing.T) {
		reader := newTestProject(t, map[string]string{"src/test_core.py": ""})
		assert.True(t, reader.HasTestIndicators())
	})

	t.Run("nothing", func(t *testing.T) {
		reader := newTestProject(t, map[string]string{"main.go": "package main\n"})
		assert.False(t, reader.HasTestIndicators())
	})
}

func TestTestFrameworkHint(t *testing.T) {
	t.Run("testify from go.mod", func(t *testing.T) {
		reader := newTestProject(t, map[string]string{
			"go.mod": "module example.com/app\n\nrequire github.com/stretchr/testify v1.11.1\n",
		})
		assert.Equal(t, "testify", reader.TestFrameworkHint())
	})

	t.Run("pytest from requirements", func(t *testing.T) {
		reader := newTestProject(t, map[string]string{
			"requirements.txt": "pytest==8.0.0\nrequests\n",
		})
		assert.Equal(t, "pytest", reader.TestFrameworkHint())
	})

	t.Run("jest from package.json", func(t *testing.T) {
		reader := newTestProject(t, map[string]string{
			"package.json": `{"devDependencies": {"jest": "^29.0.0"}}`,
		})
		assert.Equal(t, "jest", reader.TestFrameworkHint())
	})

	t.Run("go test fallback", func(t *testing.T) {
		reader := newTestProject(t, map[string]string{
			"go.mod":       "module example.com/app\n",
			"pkg/x_test.go": "package pkg\n",
		})
		assert.Equal(t, "go test", reader.TestFrameworkHint())
	})

	t.Run("unknown", func(t *testing.T) {
		reader := newTestProject(t, map[string]string{"main.c": ""})
		assert.Equal(t, "", reader.TestFrameworkHint())
	})
}
