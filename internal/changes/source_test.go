package changes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRepository(t *testing.T) {
	owner, repo, err := SplitRepository("acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)

	// GitLab-style nested namespaces keep everything after the first slash
	owner, repo, err = SplitRepository("group/subgroup/project")
	require.NoError(t, err)
	assert.Equal(t, "group", owner)
	assert.Equal(t, "subgroup/project", repo)

	for _, bad := range []string{"", "justname", "/repo", "owner/"} {
		_, _, err := SplitRepository(bad)
		assert.Error(t, err, "reference %q must be rejected", bad)
	}
}

func TestSourceErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &SourceError{Source: "github", Op: "list pull requests", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "github source")
	assert.Contains(t, err.Error(), "list pull requests")
}
