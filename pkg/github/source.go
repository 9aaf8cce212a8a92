package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"go.uber.org/zap"

	"github.com/controlx2/version-api/pkg/logging"
	"github.com/controlx2/version-api/pkg/release"
)

const DefaultPerPage = 5

// FetchCounter is notified once per upstream fetch
type FetchCounter interface {
	IncReleaseFetches()
}

// Options configures a Source
type Options struct {
	Owner   string
	Repo    string
	Token   string
	PerPage int
	// BaseURL overrides https://api.github.com/, e.g. for GitHub Enterprise
	BaseURL string
	Timeout time.Duration
	Counter FetchCounter
}

// Source lists a repository's releases through the GitHub REST API
type Source struct {
	client  *gh.Client
	owner   string
	repo    string
	perPage int
	counter FetchCounter
}

// NewSource creates a GitHub release source. The token is always sent as
// a bearer credential, even when empty.
func NewSource(opts Options) (*Source, error) {
	client := gh.NewClient(&http.Client{Timeout: opts.Timeout}).WithAuthToken(opts.Token)

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		client.BaseURL = u
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	return &Source{
		client:  client,
		owner:   opts.Owner,
		repo:    opts.Repo,
		perPage: perPage,
		counter: opts.Counter,
	}, nil
}

// FetchRecent returns the newest releases, newest first. Any transport
// failure, 4xx/5xx status or undecodable body is wrapped in
// release.ErrUpstream. No retries are attempted.
func (s *Source) FetchRecent(ctx context.Context) ([]release.Release, error) {
	if s.counter != nil {
		s.counter.IncReleaseFetches()
	}

	entries, resp, err := s.client.Repositories.ListReleases(ctx, s.owner, s.repo, &gh.ListOptions{PerPage: s.perPage})
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		logging.Logger.Warn("GitHub release fetch failed",
			zap.String("repository", s.owner+"/"+s.repo),
			zap.Int("status_code", status),
			zap.Error(err))
		if status/100 >= 4 {
			return nil, fmt.Errorf("%w: got status_code=%d from GitHub: %v", release.ErrUpstream, status, err)
		}
		return nil, fmt.Errorf("%w: %v", release.ErrUpstream, err)
	}

	releases := make([]release.Release, 0, len(entries))
	for _, entry := range entries {
		releases = append(releases, convert(entry))
	}

	logging.Logger.Debug("Fetched releases from GitHub",
		zap.String("repository", s.owner+"/"+s.repo),
		zap.Int("count", len(releases)))

	return releases, nil
}

func convert(entry *gh.RepositoryRelease) release.Release {
	return release.Release{
		Name:         entry.GetName(),
		Body:         entry.GetBody(),
		HTMLURL:      entry.GetHTMLURL(),
		CreatedAt:    entry.GetCreatedAt().Time,
		IsDraft:      entry.GetDraft(),
		IsPrerelease: entry.GetPrerelease(),
	}
}
