package release

import (
	"strings"
	"time"
)

const (
	DefaultRecencyInterval = 12 * time.Hour
	DefaultUrgentMarker    = "[URGENT]"
)

// Selector picks the release to advertise from a newest-first list
type Selector struct {
	// RecencyInterval is the embargo window after a release is created
	RecencyInterval time.Duration
	// UrgentMarker in a release body bypasses the embargo
	UrgentMarker string
}

// NewSelector creates a selector with the given embargo window and marker
func NewSelector(recencyInterval time.Duration, urgentMarker string) *Selector {
	return &Selector{
		RecencyInterval: recencyInterval,
		UrgentMarker:    urgentMarker,
	}
}

// Select returns the first release that is neither a draft nor a
// prerelease and is outside the embargo window or marked urgent. Later
// entries are never considered once one qualifies. Returns nil if none do.
func (s *Selector) Select(releases []Release, now time.Time) *Release {
	for i := range releases {
		r := releases[i]
		if r.IsDraft || r.IsPrerelease {
			continue
		}
		if s.isEmbargoed(r, now) && !s.isUrgent(r) {
			continue
		}
		return &r
	}
	return nil
}

// isEmbargoed reports whether the release is still inside the window.
// The boundary itself counts as inside.
func (s *Selector) isEmbargoed(r Release, now time.Time) bool {
	return now.Sub(r.CreatedAt) <= s.RecencyInterval
}

func (s *Selector) isUrgent(r Release) bool {
	return s.UrgentMarker != "" && strings.Contains(r.Body, s.UrgentMarker)
}
