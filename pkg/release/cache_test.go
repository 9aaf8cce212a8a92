package release_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	"github.com/controlx2/version-api/pkg/cache"
	"github.com/controlx2/version-api/pkg/release"
)

// mockSource mocks the release.Source interface
type mockSource struct {
	mock.Mock
}

func (m *mockSource) FetchRecent(ctx context.Context) ([]release.Release, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]release.Release), args.Error(1)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

var _ = Describe("Cache", func() {
	var (
		ctx      context.Context
		source   *mockSource
		clock    *fakeClock
		selector *release.Selector
		c        *release.Cache
		v120     release.Release
		v130     release.Release
	)

	BeforeEach(func() {
		ctx = context.Background()
		source = &mockSource{}
		clock = &fakeClock{t: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)}
		selector = release.NewSelector(release.DefaultRecencyInterval, release.DefaultUrgentMarker)
		c = release.NewCache(source, selector, release.DefaultCheckInterval, release.WithClock(clock.Now))

		v120 = release.Release{Name: "1.2.0", Body: "Fixes", CreatedAt: clock.Now().Add(-72 * time.Hour)}
		v130 = release.Release{Name: "1.3.0", Body: "More fixes", CreatedAt: clock.Now().Add(-48 * time.Hour)}
	})

	Describe("Get", func() {
		It("should fetch once within the check interval", func() {
			source.On("FetchRecent", mock.Anything).Return([]release.Release{v120}, nil).Once()

			first, err := c.Get(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(first.Name).To(Equal("1.2.0"))

			clock.Advance(59 * time.Minute)
			second, err := c.Get(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(second).To(BeIdenticalTo(first))

			source.AssertNumberOfCalls(GinkgoT(), "FetchRecent", 1)
		})

		It("should fetch again once the check interval has elapsed", func() {
			source.On("FetchRecent", mock.Anything).Return([]release.Release{v120}, nil).Once()
			source.On("FetchRecent", mock.Anything).Return([]release.Release{v130, v120}, nil).Once()

			_, err := c.Get(ctx)
			Expect(err).ToNot(HaveOccurred())

			clock.Advance(time.Hour)
			r, err := c.Get(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(r.Name).To(Equal("1.3.0"))

			source.AssertNumberOfCalls(GinkgoT(), "FetchRecent", 2)
		})

		It("should propagate upstream errors without caching anything", func() {
			upstreamErr := errors.New("boom")
			source.On("FetchRecent", mock.Anything).Return([]release.Release{v120}, nil).Once()
			source.On("FetchRecent", mock.Anything).Return(nil, upstreamErr).Once()

			_, err := c.Get(ctx)
			Expect(err).ToNot(HaveOccurred())

			c.Invalidate()
			r, err := c.Get(ctx)
			Expect(err).To(MatchError(upstreamErr))
			Expect(r).To(BeNil())

			// Nothing was cached by the failure, so the next call retries.
			source.On("FetchRecent", mock.Anything).Return([]release.Release{v130}, nil).Once()
			r, err = c.Get(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(r.Name).To(Equal("1.3.0"))
		})

		Context("when no release qualifies", func() {
			It("should return nil and fetch again on every call", func() {
				draft := v130
				draft.IsDraft = true
				source.On("FetchRecent", mock.Anything).Return([]release.Release{draft}, nil)

				r, err := c.Get(ctx)
				Expect(err).ToNot(HaveOccurred())
				Expect(r).To(BeNil())

				r, err = c.Get(ctx)
				Expect(err).ToNot(HaveOccurred())
				Expect(r).To(BeNil())

				source.AssertNumberOfCalls(GinkgoT(), "FetchRecent", 2)
			})

			It("should clear the current release without restarting the interval", func() {
				source.On("FetchRecent", mock.Anything).Return([]release.Release{v120}, nil).Once()
				source.On("FetchRecent", mock.Anything).Return([]release.Release{}, nil).Once()
				source.On("FetchRecent", mock.Anything).Return([]release.Release{v130}, nil).Once()

				_, err := c.Get(ctx)
				Expect(err).ToNot(HaveOccurred())

				clock.Advance(time.Hour)
				r, err := c.Get(ctx)
				Expect(err).ToNot(HaveOccurred())
				Expect(r).To(BeNil())

				// lastFetch still points an hour back, so the next call refetches.
				r, err = c.Get(ctx)
				Expect(err).ToNot(HaveOccurred())
				Expect(r.Name).To(Equal("1.3.0"))

				source.AssertNumberOfCalls(GinkgoT(), "FetchRecent", 3)
			})
		})

		It("should collapse concurrent refreshes into one fetch", func() {
			gate := make(chan time.Time)
			source.On("FetchRecent", mock.Anything).
				WaitUntil(gate).
				Return([]release.Release{v120}, nil).Once()

			const callers = 8
			var wg sync.WaitGroup
			results := make(chan string, callers)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					r, err := c.Get(ctx)
					Expect(err).ToNot(HaveOccurred())
					results <- r.Name
				}()
			}

			time.Sleep(50 * time.Millisecond)
			close(gate)
			wg.Wait()
			close(results)

			for name := range results {
				Expect(name).To(Equal("1.2.0"))
			}
			source.AssertNumberOfCalls(GinkgoT(), "FetchRecent", 1)
		})

		It("should keep serving waiting callers when the starting caller cancels", func() {
			var fetchCtx context.Context
			started := make(chan struct{})
			gate := make(chan struct{})
			source.On("FetchRecent", mock.Anything).
				Run(func(args mock.Arguments) {
					fetchCtx = args.Get(0).(context.Context)
					close(started)
					<-gate
				}).
				Return([]release.Release{v120}, nil).Once()

			ctxA, cancelA := context.WithCancel(ctx)
			defer cancelA()
			errA := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				_, err := c.Get(ctxA)
				errA <- err
			}()
			Eventually(started).Should(BeClosed())

			resultB := make(chan *release.Release, 1)
			go func() {
				defer GinkgoRecover()
				r, err := c.Get(ctx)
				Expect(err).ToNot(HaveOccurred())
				resultB <- r
			}()
			time.Sleep(50 * time.Millisecond)

			cancelA()
			Eventually(errA).Should(Receive(MatchError(context.Canceled)))
			Expect(fetchCtx.Err()).ToNot(HaveOccurred())

			close(gate)
			var r *release.Release
			Eventually(resultB).Should(Receive(&r))
			Expect(r.Name).To(Equal("1.2.0"))
			source.AssertNumberOfCalls(GinkgoT(), "FetchRecent", 1)
		})
	})

	Describe("Invalidate", func() {
		It("should force a fetch regardless of elapsed time", func() {
			source.On("FetchRecent", mock.Anything).Return([]release.Release{v120}, nil).Once()
			source.On("FetchRecent", mock.Anything).Return([]release.Release{v130}, nil).Once()

			_, err := c.Get(ctx)
			Expect(err).ToNot(HaveOccurred())

			c.Invalidate()
			r, err := c.Get(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(r.Name).To(Equal("1.3.0"))

			source.AssertNumberOfCalls(GinkgoT(), "FetchRecent", 2)
		})
	})

	Describe("snapshots", func() {
		var store *cache.MemoryCache

		BeforeEach(func() {
			store = cache.NewMemoryCache(cache.WithClock(clock.Now))
			DeferCleanup(store.Close)
			c = release.NewCache(source, selector, release.DefaultCheckInterval,
				release.WithClock(clock.Now),
				release.WithSnapshotStore(store))
		})

		It("should warm a new cache from a stored selection", func() {
			source.On("FetchRecent", mock.Anything).Return([]release.Release{v120}, nil).Once()
			_, err := c.Get(ctx)
			Expect(err).ToNot(HaveOccurred())

			clock.Advance(10 * time.Minute)
			restarted := release.NewCache(source, selector, release.DefaultCheckInterval,
				release.WithClock(clock.Now),
				release.WithSnapshotStore(store))
			Expect(restarted.Warm(ctx)).To(BeTrue())

			r, err := restarted.Get(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(r.Name).To(Equal("1.2.0"))
			source.AssertNumberOfCalls(GinkgoT(), "FetchRecent", 1)
		})

		It("should not warm from an empty store", func() {
			Expect(c.Warm(ctx)).To(BeFalse())
		})

		It("should not warm once the check interval has passed", func() {
			source.On("FetchRecent", mock.Anything).Return([]release.Release{v120}, nil).Once()
			_, err := c.Get(ctx)
			Expect(err).ToNot(HaveOccurred())

			clock.Advance(2 * time.Hour)
			restarted := release.NewCache(source, selector, release.DefaultCheckInterval,
				release.WithClock(clock.Now),
				release.WithSnapshotStore(store))
			Expect(restarted.Warm(ctx)).To(BeFalse())
		})

		It("should drop the snapshot on Invalidate", func() {
			source.On("FetchRecent", mock.Anything).Return([]release.Release{v120}, nil).Once()
			_, err := c.Get(ctx)
			Expect(err).ToNot(HaveOccurred())

			c.Invalidate()

			restarted := release.NewCache(source, selector, release.DefaultCheckInterval,
				release.WithClock(clock.Now),
				release.WithSnapshotStore(store))
			Expect(restarted.Warm(ctx)).To(BeFalse())
		})
	})
})
