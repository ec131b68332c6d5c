// Package diff extracts structure from unified diffs using
// bluekeyes/go-gitdiff.
package diff

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// FileChange summarizes one file touched by a change set
type FileChange struct {
	Path      string
	OldPath   string // set when renamed
	IsNew     bool
	IsDeleted bool
	IsRenamed bool
	IsBinary  bool
	Additions int64
	Deletions int64
}

// Parser parses unified diff text into per-file changes
type Parser struct{}

// NewParser creates a new diff parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse returns the files touched by diffText, in diff order
func (p *Parser) Parse(diffText string) ([]FileChange, error) {
	if strings.TrimSpace(diffText) == "" {
		return nil, nil
	}

	files, _, err := gitdiff.Parse(strings.NewReader(diffText))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	changes := make([]FileChange, 0, len(files))
	for _, f := range files {
		fc := FileChange{
			Path:      f.NewName,
			IsNew:     f.IsNew,
			IsDeleted: f.IsDelete,
			IsRenamed: f.IsRename,
			IsBinary:  f.IsBinary,
		}
		if f.IsDelete || fc.Path == "" {
			fc.Path = f.OldName
		}
		if f.IsRename {
			fc.OldPath = f.OldName
		}
		for _, frag := range f.TextFragments {
			fc.Additions += frag.LinesAdded
			fc.Deletions += frag.LinesDeleted
		}
		changes = append(changes, fc)
	}

	return changes, nil
}

// ChangedPaths returns the unique existing-file paths a change set
// touches, in first-seen order. Deleted and binary files are skipped
// since they carry no local context worth sending.
func (p *Parser) ChangedPaths(diffText string) ([]string, error) {
	changes, err := p.Parse(diffText)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(changes))
	paths := make([]string, 0, len(changes))
	for _, fc := range changes {
		if fc.IsDeleted || fc.IsBinary || fc.Path == "" {
			continue
		}
		if _, ok := seen[fc.Path]; ok {
			continue
		}
		seen[fc.Path] = struct{}{}
		paths = append(paths, fc.Path)
	}

	return paths, nil
}
