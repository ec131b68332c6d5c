package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/internal/auth/token.go b/internal/auth/token.go
index 1111111..2222222 100644
--- a/internal/auth/token.go
+++ b/internal/auth/token.go
@@ -10,5 +10,6 @@ func Validate(token string) error {
 	if token == "" {
 		return ErrEmptyToken
 	}
+	log.Printf("validating token %s", token)
 	return nil
 }
diff --git a/README.md b/README.md
deleted file mode 100644
index 3333333..0000000
--- a/README.md
+++ /dev/null
@@ -1,2 +0,0 @@
-# Project
-Docs.
diff --git a/cmd/newtool/main.go b/cmd/newtool/main.go
new file mode 100644
index 0000000..4444444
--- /dev/null
+++ b/cmd/newtool/main.go
@@ -0,0 +1,3 @@
+package main
+
+func main() {}
`

func TestParse(t *testing.T) {
	parser := NewParser()

	changes, err := parser.Parse(sampleDiff)
	require.NoError(t, err)
	require.Len(t, changes, 3)

	assert.Equal(t, "internal/auth/token.go", changes[0].Path)
	assert.False(t, changes[0].IsNew)
	assert.Equal(t, int64(1), changes[0].Additions)

	assert.Equal(t, "README.md", changes[1].Path)
	assert.True(t, changes[1].IsDeleted)

	assert.Equal(t, "cmd/newtool/main.go", changes[2].Path)
	assert.True(t, changes[2].IsNew)
	assert.Equal(t, int64(3), changes[2].Additions)
}

func TestParseEmptyDiff(t *testing.T) {
	parser := NewParser()

	changes, err := parser.Parse("   \n")
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestParseNonDiffText(t *testing.T) {
	parser := NewParser()

	// Text without any file header parses as preamble with no changes
	changes, err := parser.Parse("just some prose, no diff here")
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestChangedPathsSkipsDeleted(t *testing.T) {
	parser := NewParser()

	paths, err := parser.ChangedPaths(sampleDiff)
	require.NoError(t, err)

	assert.Equal(t, []string{"internal/auth/token.go", "cmd/newtool/main.go"}, paths,
		"deleted files carry no baseline worth reading")
}

func TestChangedPathsDeduplicates(t *testing.T) {
	doubled := sampleDiff + `diff --git a/internal/auth/token.go b/internal/auth/token.go
index 2222222..5555555 100644
--- a/internal/auth/token.go
+++ b/internal/auth/token.go
@@ -20,3 +20,4 @@ func Refresh(token string) error {
 	_ = token
+	// refresh
 	return nil
 }
`
	parser := NewParser()

	paths, err := parser.ChangedPaths(doubled)
	require.NoError(t, err)
	assert.Equal(t, []string{"internal/auth/token.go", "cmd/newtool/main.go"}, paths)
}
