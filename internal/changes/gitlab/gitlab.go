// Package gitlab implements the change source for GitLab merge requests.
//
// The official client is used for connection setup and URL handling; the
// listing and raw-diff endpoints go through a small custom HTTP client
// because the responses we need (per-file diff bodies) are easier to
// consume from the REST API directly.
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/codeargus/internal/changes"
	"github.com/codeargus/pkg/models"
)

const sourceName = "gitlab"

// Config contains the settings for the GitLab change source
type Config struct {
	Repository string // namespace/project
	Token      string
	BaseURL    string // instance root, defaults to https://gitlab.com
}

// Source fetches merge requests and diffs from one GitLab project
type Source struct {
	client     *gitlab.Client
	httpClient *http.Client
	baseURL    string
	token      string
	projectID  string // URL-encoded namespace/project
}

// New creates a GitLab change source
func New(config Config) (*Source, error) {
	if config.Repository == "" {
		return nil, fmt.Errorf("gitlab source requires a repository reference")
	}

	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://gitlab.com"
	}

	client := gitlab.NewClient(nil, config.Token)
	if err := client.SetBaseURL(fmt.Sprintf("%s/api/v4", baseURL)); err != nil {
		return nil, fmt.Errorf("failed to set GitLab API base URL: %w", err)
	}

	return &Source{
		client:     client,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      config.Token,
		projectID:  url.PathEscape(config.Repository),
	}, nil
}

// Name returns the source's name
func (s *Source) Name() string {
	return sourceName
}

// mergeRequest is the subset of the MR payload we consume
type mergeRequest struct {
	IID       int       `json:"iid"`
	Title     string    `json:"title"`
	WebURL    string    `json:"web_url"`
	CreatedAt time.Time `json:"created_at"`
	Author    struct {
		Username string `json:"username"`
	} `json:"author"`
}

// fileDiff is one entry of the /diffs response
type fileDiff struct {
	Diff        string `json:"diff"`
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	NewFile     bool   `json:"new_file"`
	DeletedFile bool   `json:"deleted_file"`
	RenamedFile bool   `json:"renamed_file"`
}

// OpenChangeSets lists open merge requests, newest first, each with its
// unified diff populated
func (s *Source) OpenChangeSets(ctx context.Context) ([]models.ChangeSet, error) {
	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/merge_requests?state=opened&order_by=created_at&sort=desc&per_page=50",
		s.baseURL, s.projectID)

	var mrs []mergeRequest
	if err := s.getJSON(ctx, endpoint, &mrs); err != nil {
		return nil, &changes.SourceError{Source: sourceName, Op: "list merge requests", Err: err}
	}

	result := make([]models.ChangeSet, 0, len(mrs))
	for _, mr := range mrs {
		cs, err := s.toChangeSet(ctx, mr)
		if err != nil {
			return nil, err
		}
		result = append(result, *cs)
	}

	return result, nil
}

// ChangeSet fetches one merge request by IID
func (s *Source) ChangeSet(ctx context.Context, id string) (*models.ChangeSet, error) {
	iid, err := strconv.Atoi(id)
	if err != nil {
		return nil, &changes.SourceError{Source: sourceName, Op: "parse change id", Err: err}
	}

	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/merge_requests/%d", s.baseURL, s.projectID, iid)

	var mr mergeRequest
	if err := s.getJSON(ctx, endpoint, &mr); err != nil {
		return nil, &changes.SourceError{Source: sourceName, Op: fmt.Sprintf("get merge request !%d", iid), Err: err}
	}

	return s.toChangeSet(ctx, mr)
}

func (s *Source) toChangeSet(ctx context.Context, mr mergeRequest) (*models.ChangeSet, error) {
	diff, err := s.fetchDiff(ctx, mr.IID)
	if err != nil {
		return nil, &changes.SourceError{Source: sourceName, Op: fmt.Sprintf("fetch diff for !%d", mr.IID), Err: err}
	}

	return &models.ChangeSet{
		ID:       strconv.Itoa(mr.IID),
		Title:    mr.Title,
		Author:   mr.Author.Username,
		URL:      mr.WebURL,
		DiffText: diff,
		Created:  mr.CreatedAt,
	}, nil
}

// fetchDiff assembles a full unified diff from the per-file diffs the
// API returns. GitLab's diff bodies start at the @@ hunk header, so the
// git-style file headers are reconstructed here.
func (s *Source) fetchDiff(ctx context.Context, iid int) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/merge_requests/%d/diffs?view=inline&per_page=100",
		s.baseURL, s.projectID, iid)

	var diffs []fileDiff
	if err := s.getJSON(ctx, endpoint, &diffs); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, d := range diffs {
		if d.Diff == "" {
			continue
		}
		oldPath, newPath := d.OldPath, d.NewPath
		if oldPath == "" {
			oldPath = newPath
		}
		fmt.Fprintf(&sb, "diff --git a/%s b/%s\n", oldPath, newPath)
		if d.NewFile {
			fmt.Fprintf(&sb, "--- /dev/null\n+++ b/%s\n", newPath)
		} else if d.DeletedFile {
			fmt.Fprintf(&sb, "--- a/%s\n+++ /dev/null\n", oldPath)
		} else {
			fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", oldPath, newPath)
		}
		sb.WriteString(d.Diff)
		if !strings.HasSuffix(d.Diff, "\n") {
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}

// getJSON performs an authenticated GET and decodes the JSON response
func (s *Source) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gitlab API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var _ changes.Source = (*Source)(nil)
