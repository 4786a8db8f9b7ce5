package realtime_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/realtime"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ = Describe("LatestOnly", func() {
	It("returns nothing when empty", func() {
		q := realtime.NewLatestOnly[int]()
		_, ok := q.Get()
		Expect(ok).To(BeFalse())
		Expect(q.Pending()).To(BeFalse())
	})

	It("keeps only the last of N puts and counts N-1 drops", func() {
		q := realtime.NewLatestOnly[int]()
		const n = 25
		for i := 1; i <= n; i++ {
			q.Put(i)
		}
		Expect(q.Pending()).To(BeTrue())

		v, ok := q.Get()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(n))
		Expect(q.Dropped()).To(Equal(uint64(n - 1)))
		Expect(q.Puts()).To(Equal(uint64(n)))

		_, ok = q.Get()
		Expect(ok).To(BeFalse())
	})

	It("does not count a drop when the consumer keeps up", func() {
		q := realtime.NewLatestOnly[string]()
		for _, s := range []string{"a", "b", "c"} {
			q.Put(s)
			v, ok := q.Get()
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(s))
		}
		Expect(q.Dropped()).To(BeZero())
	})

	It("hands out copies that later puts cannot change", func() {
		type snap struct{ values [3]float64 }
		q := realtime.NewLatestOnly[snap]()
		s := snap{values: [3]float64{1, 2, 3}}
		q.Put(s)
		s.values[0] = 99

		got, ok := q.Get()
		Expect(ok).To(BeTrue())
		Expect(got.values[0]).To(Equal(1.0))
	})

	It("never lets a consumer observe time going backwards", func() {
		q := realtime.NewLatestOnly[int]()
		const n = 20000
		done := make(chan struct{})
		var seen []int

		go func() {
			defer close(done)
			last := 0
			for last < n {
				if v, ok := q.Get(); ok {
					seen = append(seen, v)
					last = v
				}
			}
		}()
		for i := 1; i <= n; i++ {
			q.Put(i)
		}
		Eventually(done).WithTimeout(5 * time.Second).Should(BeClosed())

		for i := 1; i < len(seen); i++ {
			Expect(seen[i]).To(BeNumerically(">", seen[i-1]))
		}
		Expect(seen[len(seen)-1]).To(Equal(n))
		Expect(uint64(len(seen)) + q.Dropped()).To(Equal(uint64(n)))
	})
})

var _ = Describe("TimingAccumulator", func() {
	var (
		clock *fakeClock
		acc   *realtime.TimingAccumulator
		cfg   realtime.AccumulatorConfig
	)

	BeforeEach(func() {
		clock = newFakeClock()
		cfg = realtime.AccumulatorConfig{Dt: 0.001, MaxStepsPerFrame: 20, MaxFrameTime: 0.1}
		var err error
		acc, err = realtime.NewTimingAccumulator(cfg, clock.Now)
		Expect(err).NotTo(HaveOccurred())
	})

	It("anchors on the first update", func() {
		Expect(acc.Update()).To(BeZero())
	})

	It("returns the steps owed for elapsed wall time", func() {
		acc.Update()
		clock.Advance(5 * time.Millisecond)
		Expect(acc.Update()).To(Equal(5))
		clock.Advance(2500 * time.Microsecond)
		Expect(acc.Update()).To(Equal(2))
		Expect(acc.Alpha()).To(BeNumerically("~", 0.5, 1e-6))
		clock.Advance(500 * time.Microsecond)
		Expect(acc.Update()).To(Equal(1))
		Expect(acc.Alpha()).To(BeNumerically("<", 1e-6))
	})

	It("never exceeds max steps per frame after a long stall", func() {
		acc.Update()
		for _, gap := range []time.Duration{time.Hour, 30 * time.Second, 80 * time.Millisecond, 21 * time.Millisecond} {
			clock.Advance(gap)
			Expect(acc.Update()).To(BeNumerically("<=", cfg.MaxStepsPerFrame))
		}
		Expect(acc.Discarded()).To(BeNumerically(">", 3600.0))
	})

	It("drops the backlog instead of spiralling", func() {
		Expect(acc.Advance(10)).To(Equal(cfg.MaxStepsPerFrame))
		Expect(acc.Alpha()).To(BeNumerically("<", 1))
		Expect(acc.Advance(0)).To(BeZero())
	})

	It("ignores negative and non-finite gaps", func() {
		Expect(acc.Advance(-1)).To(BeZero())
		Expect(acc.Alpha()).To(BeZero())
	})

	It("rejects invalid configuration", func() {
		_, err := realtime.NewTimingAccumulator(realtime.AccumulatorConfig{Dt: 0, MaxStepsPerFrame: 1, MaxFrameTime: 1}, nil)
		Expect(err).To(MatchError(dynamo.ErrConfiguration))
		_, err = realtime.NewTimingAccumulator(realtime.AccumulatorConfig{Dt: 0.001, MaxStepsPerFrame: 0, MaxFrameTime: 1}, nil)
		Expect(err).To(MatchError(dynamo.ErrConfiguration))
	})

	It("forgets accumulated time on reset", func() {
		acc.Advance(0.0005)
		acc.Reset()
		Expect(acc.Alpha()).To(BeZero())
		Expect(acc.Update()).To(BeZero())
	})
})

var _ = Describe("PerformanceMetrics", func() {
	It("summarizes step wall times and the realtime factor", func() {
		clock := newFakeClock()
		perf := realtime.NewPerformanceMetrics(0.001, clock.Now)

		for _, d := range []time.Duration{200 * time.Microsecond, 600 * time.Microsecond, 400 * time.Microsecond} {
			clock.Advance(d)
			perf.RecordStep(d, 0.001)
		}
		clock.Advance(300 * time.Microsecond)

		s := perf.Summary()
		Expect(s.Steps).To(Equal(3))
		Expect(s.MinStep).To(Equal(200 * time.Microsecond))
		Expect(s.MaxStep).To(Equal(600 * time.Microsecond))
		Expect(s.AvgStep).To(Equal(400 * time.Microsecond))
		Expect(s.TargetFPS).To(BeNumerically("~", 1000, 1e-9))
		Expect(s.WallTime).To(BeNumerically("~", 0.0015, 1e-12))
		Expect(s.RealtimeFactor).To(BeNumerically("~", 2.0, 1e-9))
		Expect(s.MeasuredFPS).To(BeNumerically("~", 2000, 1e-6))
		Expect(s.String()).To(ContainSubstring("steps=3"))
	})

	It("stops the wall clock while suspended", func() {
		clock := newFakeClock()
		perf := realtime.NewPerformanceMetrics(0.001, clock.Now)

		for i := 0; i < 300; i++ {
			clock.Advance(time.Millisecond)
			perf.RecordStep(time.Millisecond, 0.001)
		}
		running := perf.Summary()
		Expect(running.RealtimeFactor).To(BeNumerically("~", 1.0, 1e-9))

		perf.Suspend()
		clock.Advance(600 * time.Millisecond)
		paused := perf.Summary()
		Expect(paused.WallTime).To(BeNumerically("~", 0.3, 1e-9))
		Expect(paused.RealtimeFactor).To(BeNumerically("~", 1.0, 1e-9))
		Expect(paused.MeasuredFPS).To(BeNumerically("~", 1000, 1e-6))

		perf.Suspend()
		perf.Resume()
		clock.Advance(100 * time.Millisecond)
		Expect(perf.Summary().WallTime).To(BeNumerically("~", 0.4, 1e-9))
	})

	It("counts only step time for steps taken while suspended", func() {
		clock := newFakeClock()
		perf := realtime.NewPerformanceMetrics(0.001, clock.Now)

		perf.Resume()
		clock.Advance(time.Second)
		Expect(perf.Summary().WallTime).To(BeZero())

		clock.Advance(time.Millisecond)
		perf.RecordStep(time.Millisecond, 0.001)
		perf.Suspend()
		clock.Advance(time.Second)
		perf.RecordStep(2*time.Millisecond, 0.001)
		Expect(perf.Summary().WallTime).To(BeNumerically("~", 0.003, 1e-12))
	})

	It("is safe to read while the driver writes", func() {
		perf := realtime.NewPerformanceMetrics(0.001, nil)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				perf.RecordStep(time.Microsecond, 0.001)
			}
		}()
		for i := 0; i < 100; i++ {
			_ = perf.Summary()
		}
		wg.Wait()
		Expect(perf.Summary().Steps).To(Equal(1000))

		perf.Reset()
		s := perf.Summary()
		Expect(s.Steps).To(BeZero())
		Expect(s.WallTime).To(BeZero())
		Expect(s.SimTime).To(BeZero())
	})
})
