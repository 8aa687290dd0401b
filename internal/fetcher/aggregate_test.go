package fetcher_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	"github.com/jonmartinstorm/repodash/internal/fetcher"
	"github.com/jonmartinstorm/repodash/internal/mocks"
	"github.com/jonmartinstorm/repodash/internal/models"
)

// trackingFetcher records how many lookups overlap and in which order they
// start and finish.
type trackingFetcher struct {
	inFlight atomic.Int32
	peak     atomic.Int32

	mu     sync.Mutex
	events []string
}

func (f *trackingFetcher) GetRepoLanguages(ctx context.Context, owner, name string) models.LanguageStats {
	n := f.inFlight.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	f.record("start " + name)
	time.Sleep(5 * time.Millisecond)
	f.record("end " + name)
	f.inFlight.Add(-1)
	return models.LanguageStats{"Go": 1}
}

func (f *trackingFetcher) record(event string) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
}

func reposNamed(n int) []models.Repository {
	repos := make([]models.Repository, 0, n)
	for i := range n {
		repos = append(repos, models.Repository{FullName: fmt.Sprintf("octocat/r%02d", i)})
	}
	return repos
}

var _ = Describe("LanguageAggregator", func() {
	It("sums the breakdowns of all repositories", func() {
		f := mocks.NewMockLanguageFetcher(GinkgoT())
		f.On("GetRepoLanguages", mock.Anything, "octocat", "a").Return(models.LanguageStats{"Go": 100})
		f.On("GetRepoLanguages", mock.Anything, "octocat", "b").Return(models.LanguageStats{"Go": 50, "Rust": 50})
		f.On("GetRepoLanguages", mock.Anything, "octocat", "c").Return(models.LanguageStats{})

		total := fetcher.NewLanguageAggregator(f, 2).Aggregate(context.Background(), []models.Repository{
			{FullName: "octocat/a"}, {FullName: "octocat/b"}, {FullName: "octocat/c"},
		})
		Expect(total).To(Equal(models.LanguageStats{"Go": 150, "Rust": 50}))
	})

	It("returns an empty sum for no repositories", func() {
		f := mocks.NewMockLanguageFetcher(GinkgoT())
		total := fetcher.NewLanguageAggregator(f, 5).Aggregate(context.Background(), nil)
		Expect(total).NotTo(BeNil())
		Expect(total).To(BeEmpty())
	})

	It("skips repositories with malformed full names", func() {
		f := mocks.NewMockLanguageFetcher(GinkgoT())
		f.On("GetRepoLanguages", mock.Anything, "octocat", "ok").Return(models.LanguageStats{"C": 9})

		total := fetcher.NewLanguageAggregator(f, 5).Aggregate(context.Background(), []models.Repository{
			{FullName: "noslash"}, {FullName: "a/b/c"}, {FullName: "/empty"}, {FullName: "octocat/ok"},
		})
		Expect(total).To(Equal(models.LanguageStats{"C": 9}))
		f.AssertNumberOfCalls(GinkgoT(), "GetRepoLanguages", 1)
	})

	It("never runs more lookups at once than the batch size", func() {
		f := &trackingFetcher{}
		total := fetcher.NewLanguageAggregator(f, 5).Aggregate(context.Background(), reposNamed(23))

		Expect(total).To(Equal(models.LanguageStats{"Go": 23}))
		Expect(f.peak.Load()).To(BeNumerically("<=", 5))
		Expect(f.peak.Load()).To(BeNumerically(">", 1))
	})

	It("finishes every lookup of a batch before starting the next batch", func() {
		f := &trackingFetcher{}
		fetcher.NewLanguageAggregator(f, 4).Aggregate(context.Background(), reposNamed(10))

		batchOf := func(event string) int {
			var i int
			_, name, _ := strings.Cut(event, " ")
			_, _ = fmt.Sscanf(name, "r%02d", &i)
			return i / 4
		}

		Expect(f.events).To(HaveLen(20))
		size := func(b int) int { return min(4, 10-b*4) }
		ended := map[int]int{}
		for _, e := range f.events {
			b := batchOf(e)
			if strings.HasPrefix(e, "start") {
				if b > 0 {
					Expect(ended[b-1]).To(Equal(size(b-1)), "%s started before batch %d finished", e, b-1)
				}
				continue
			}
			ended[b]++
		}
	})

	It("stops starting batches once the context is done", func() {
		f := mocks.NewMockLanguageFetcher(GinkgoT())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		total := fetcher.NewLanguageAggregator(f, 5).Aggregate(ctx, reposNamed(12))
		Expect(total).To(BeEmpty())
		f.AssertNotCalled(GinkgoT(), "GetRepoLanguages", mock.Anything, mock.Anything, mock.Anything)
	})

	It("falls back to the default batch size", func() {
		f := &trackingFetcher{}
		fetcher.NewLanguageAggregator(f, 0).Aggregate(context.Background(), reposNamed(12))
		Expect(f.peak.Load()).To(BeNumerically("<=", fetcher.DefaultBatchSize))
	})
})
