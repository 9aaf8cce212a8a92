// Package release selects and caches the release advertised to clients.
package release

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUpstream wraps failures talking to the release index: transport
	// errors, 4xx/5xx statuses and undecodable bodies.
	ErrUpstream = errors.New("upstream release fetch failed")
	// ErrNoRelease means no release survived selection.
	ErrNoRelease = errors.New("no applicable release")
)

// Release is one entry of the upstream release list. Values handed out by
// Cache are shared and must not be modified.
type Release struct {
	Name         string    `json:"name"`
	Body         string    `json:"body"`
	HTMLURL      string    `json:"html_url"`
	CreatedAt    time.Time `json:"created_at"`
	IsDraft      bool      `json:"draft"`
	IsPrerelease bool      `json:"prerelease"`
}

// Source lists the most recent releases, newest first
type Source interface {
	FetchRecent(ctx context.Context) ([]Release, error)
}
