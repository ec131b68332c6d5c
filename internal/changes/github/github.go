// Package github implements the change source for GitHub pull requests
// using the official REST client.
package github

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/go-github/v58/github"

	"github.com/codeargus/internal/changes"
	"github.com/codeargus/pkg/models"
)

const sourceName = "github"

// Config contains the settings for the GitHub change source
type Config struct {
	Repository string // owner/repo
	Token      string
	BaseURL    string // GitHub Enterprise API root, empty for github.com
}

// Source fetches pull requests and diffs from one GitHub repository
type Source struct {
	client *github.Client
	owner  string
	repo   string
}

// New creates a GitHub change source
func New(config Config) (*Source, error) {
	owner, repo, err := changes.SplitRepository(config.Repository)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(nil).WithAuthToken(config.Token)
	if config.BaseURL != "" {
		client, err = client.WithEnterpriseURLs(config.BaseURL, config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure enterprise URL: %w", err)
		}
	}

	return &Source{client: client, owner: owner, repo: repo}, nil
}

// Name returns the source's name
func (s *Source) Name() string {
	return sourceName
}

// OpenChangeSets lists open pull requests, newest first, each with its
// unified diff populated
func (s *Source) OpenChangeSets(ctx context.Context) ([]models.ChangeSet, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 50},
	}

	var result []models.ChangeSet
	for {
		prs, resp, err := s.client.PullRequests.List(ctx, s.owner, s.repo, opts)
		if err != nil {
			return nil, &changes.SourceError{Source: sourceName, Op: "list pull requests", Err: err}
		}

		for _, pr := range prs {
			cs, err := s.toChangeSet(ctx, pr)
			if err != nil {
				return nil, err
			}
			result = append(result, *cs)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}

// ChangeSet fetches one pull request by number
func (s *Source) ChangeSet(ctx context.Context, id string) (*models.ChangeSet, error) {
	number, err := strconv.Atoi(id)
	if err != nil {
		return nil, &changes.SourceError{Source: sourceName, Op: "parse change id", Err: err}
	}

	pr, _, err := s.client.PullRequests.Get(ctx, s.owner, s.repo, number)
	if err != nil {
		return nil, &changes.SourceError{Source: sourceName, Op: fmt.Sprintf("get pull request #%d", number), Err: err}
	}

	return s.toChangeSet(ctx, pr)
}

func (s *Source) toChangeSet(ctx context.Context, pr *github.PullRequest) (*models.ChangeSet, error) {
	number := pr.GetNumber()

	diff, _, err := s.client.PullRequests.GetRaw(ctx, s.owner, s.repo, number,
		github.RawOptions{Type: github.Diff})
	if err != nil {
		return nil, &changes.SourceError{Source: sourceName, Op: fmt.Sprintf("fetch diff for #%d", number), Err: err}
	}

	return &models.ChangeSet{
		ID:       strconv.Itoa(number),
		Title:    pr.GetTitle(),
		Author:   pr.GetUser().GetLogin(),
		URL:      pr.GetHTMLURL(),
		DiffText: diff,
		Created:  pr.GetCreatedAt().Time,
	}, nil
}

var _ changes.Source = (*Source)(nil)
