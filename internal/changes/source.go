// Package changes defines the change-source capability: fetching open
// change sets and their diffs from a code hosting service. Variants
// live in subpackages (github, gitlab).
package changes

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeargus/pkg/models"
)

// Source fetches change sets from a hosting service
type Source interface {
	// OpenChangeSets lists open change sets, newest first, with diffs
	// populated
	OpenChangeSets(ctx context.Context) ([]models.ChangeSet, error)

	// ChangeSet fetches a single change set by identifier
	ChangeSet(ctx context.Context, id string) (*models.ChangeSet, error)

	// Name returns the source's name
	Name() string
}

// SourceError indicates the change source could not deliver. It is
// fatal for the run when listing fails, per-change-set recoverable when
// a single diff fetch fails.
type SourceError struct {
	Source string
	Op     string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s source: %s: %v", e.Source, e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// SplitRepository splits an "owner/repo" reference
func SplitRepository(repository string) (owner, repo string, err error) {
	parts := strings.SplitN(repository, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository reference %q, expected owner/repo", repository)
	}
	return parts[0], parts[1], nil
}
