package release_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/controlx2/version-api/pkg/release"
)

var _ = Describe("Selector", func() {
	var (
		selector *release.Selector
		now      time.Time
	)

	BeforeEach(func() {
		selector = release.NewSelector(release.DefaultRecencyInterval, release.DefaultUrgentMarker)
		now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	})

	old := func(name string) release.Release {
		return release.Release{
			Name:      name,
			Body:      "Notes for " + name,
			CreatedAt: now.Add(-48 * time.Hour),
		}
	}

	Context("with drafts and prereleases", func() {
		It("should never return a draft, even when it is the only release", func() {
			r := old("1.3.0")
			r.IsDraft = true
			Expect(selector.Select([]release.Release{r}, now)).To(BeNil())
		})

		It("should never return a prerelease, even when it is the only release", func() {
			r := old("1.3.0-rc1")
			r.IsPrerelease = true
			Expect(selector.Select([]release.Release{r}, now)).To(BeNil())
		})

		It("should skip drafts and prereleases and return the next release", func() {
			draft := old("1.4.0")
			draft.IsDraft = true
			pre := old("1.3.0")
			pre.IsPrerelease = true

			selected := selector.Select([]release.Release{draft, pre, old("1.2.0"), old("1.1.0")}, now)
			Expect(selected).ToNot(BeNil())
			Expect(selected.Name).To(Equal("1.2.0"))
		})
	})

	Context("with the embargo window", func() {
		It("should skip a release inside the window", func() {
			recent := old("1.3.0")
			recent.CreatedAt = now.Add(-time.Hour)

			selected := selector.Select([]release.Release{recent, old("1.2.0")}, now)
			Expect(selected).ToNot(BeNil())
			Expect(selected.Name).To(Equal("1.2.0"))
		})

		It("should return a release inside the window when marked urgent", func() {
			urgent := old("1.3.0")
			urgent.CreatedAt = now.Add(-time.Minute)
			urgent.Body = "Critical fix [URGENT]\nDetails"

			selected := selector.Select([]release.Release{urgent, old("1.2.0")}, now)
			Expect(selected).ToNot(BeNil())
			Expect(selected.Name).To(Equal("1.3.0"))
		})

		It("should require the exact urgent marker", func() {
			recent := old("1.3.0")
			recent.CreatedAt = now.Add(-time.Minute)
			recent.Body = "Critical fix [urgent]"

			selected := selector.Select([]release.Release{recent, old("1.2.0")}, now)
			Expect(selected.Name).To(Equal("1.2.0"))
		})

		It("should treat the exact boundary as inside the window", func() {
			boundary := old("1.3.0")
			boundary.CreatedAt = now.Add(-release.DefaultRecencyInterval)

			selected := selector.Select([]release.Release{boundary, old("1.2.0")}, now)
			Expect(selected.Name).To(Equal("1.2.0"))
		})

		It("should return a release just past the boundary", func() {
			past := old("1.3.0")
			past.CreatedAt = now.Add(-release.DefaultRecencyInterval - time.Second)

			selected := selector.Select([]release.Release{past, old("1.2.0")}, now)
			Expect(selected.Name).To(Equal("1.3.0"))
		})

		It("should honour a custom window and marker", func() {
			custom := release.NewSelector(time.Hour, "!!hotfix")
			recent := old("1.3.0")
			recent.CreatedAt = now.Add(-2 * time.Hour)
			Expect(custom.Select([]release.Release{recent}, now).Name).To(Equal("1.3.0"))

			recent.CreatedAt = now.Add(-30 * time.Minute)
			Expect(custom.Select([]release.Release{recent}, now)).To(BeNil())

			recent.Body = "!!hotfix"
			Expect(custom.Select([]release.Release{recent}, now).Name).To(Equal("1.3.0"))
		})
	})

	Context("with several qualifying releases", func() {
		It("should return only the first survivor", func() {
			selected := selector.Select([]release.Release{old("1.2.0"), old("1.3.0")}, now)
			Expect(selected.Name).To(Equal("1.2.0"))
		})

		It("should return a copy that does not alias the input", func() {
			releases := []release.Release{old("1.2.0")}
			selected := selector.Select(releases, now)
			releases[0].Name = "changed"
			Expect(selected.Name).To(Equal("1.2.0"))
		})
	})

	It("should return nil for an empty list", func() {
		Expect(selector.Select(nil, now)).To(BeNil())
	})
})
