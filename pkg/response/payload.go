package response

import (
	"errors"
	"strings"

	"github.com/controlx2/version-api/pkg/release"
)

// ErrEmptyReleaseBody is returned when a release has no description lines
var ErrEmptyReleaseBody = errors.New("release body is empty")

// Payload is the body returned to clients for every version query
type Payload struct {
	UpToDate    bool   `json:"upToDate"`
	NewVersion  string `json:"newVersion"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Build assembles the client payload for a verdict against r. The
// description is the first line of the release body.
func Build(upToDate bool, r *release.Release) (Payload, error) {
	if r == nil {
		return Payload{}, release.ErrNoRelease
	}

	description, ok := firstLine(r.Body)
	if !ok {
		return Payload{}, ErrEmptyReleaseBody
	}

	return Payload{
		UpToDate:    upToDate,
		NewVersion:  r.Name,
		Description: description,
		URL:         r.HTMLURL,
	}, nil
}

// firstLine returns the text before the first line break (\n, \r\n or \r).
// It reports false for a body with no lines at all.
func firstLine(body string) (string, bool) {
	if body == "" {
		return "", false
	}
	if i := strings.IndexAny(body, "\r\n"); i >= 0 {
		return body[:i], true
	}
	return body, true
}
