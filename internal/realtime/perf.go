package realtime

import (
	"fmt"
	"sync"
	"time"
)

// PerformanceSummary is a point-in-time copy of the running statistics.
type PerformanceSummary struct {
	Steps          int           `json:"steps"`
	MinStep        time.Duration `json:"min_step"`
	MaxStep        time.Duration `json:"max_step"`
	AvgStep        time.Duration `json:"avg_step"`
	TargetFPS      float64       `json:"target_fps"`
	MeasuredFPS    float64       `json:"measured_fps"`
	RealtimeFactor float64       `json:"realtime_factor"`
	SimTime        float64       `json:"sim_time"`
	WallTime       float64       `json:"wall_time"`
}

func (s PerformanceSummary) String() string {
	return fmt.Sprintf("steps=%d step[min=%v avg=%v max=%v] fps=%.0f/%.0f rtf=%.3f",
		s.Steps, s.MinStep, s.AvgStep, s.MaxStep, s.MeasuredFPS, s.TargetFPS, s.RealtimeFactor)
}

// PerformanceMetrics records wall time per committed physics step. It is
// written by the physics driver and read by anyone through Summary. Wall
// time only runs between the first step and Suspend, and again after Resume.
type PerformanceMetrics struct {
	mu sync.Mutex

	targetDt float64
	now      Clock
	start    time.Time
	started  bool
	running  bool
	banked   time.Duration

	steps   int
	minStep time.Duration
	maxStep time.Duration
	total   time.Duration
	simTime float64
}

// NewPerformanceMetrics uses time.Now when clock is nil.
func NewPerformanceMetrics(targetDt float64, clock Clock) *PerformanceMetrics {
	if clock == nil {
		clock = time.Now
	}
	return &PerformanceMetrics{targetDt: targetDt, now: clock}
}

// RecordStep adds one committed step that took wall and advanced the
// simulation by simDt seconds.
func (p *PerformanceMetrics) RecordStep(wall time.Duration, simDt float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case !p.started:
		p.started, p.running = true, true
		p.start = p.now().Add(-wall)
	case !p.running:
		p.banked += wall
	}
	if p.steps == 0 || wall < p.minStep {
		p.minStep = wall
	}
	if wall > p.maxStep {
		p.maxStep = wall
	}
	p.steps++
	p.total += wall
	p.simTime += simDt
}

func (p *PerformanceMetrics) Summary() PerformanceSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := PerformanceSummary{
		Steps:   p.steps,
		MinStep: p.minStep,
		MaxStep: p.maxStep,
		SimTime: p.simTime,
	}
	if p.targetDt > 0 {
		s.TargetFPS = 1 / p.targetDt
	}
	if p.steps > 0 {
		s.AvgStep = p.total / time.Duration(p.steps)
	}
	wall := p.banked
	if p.running {
		wall += p.now().Sub(p.start)
	}
	s.WallTime = wall.Seconds()
	if s.WallTime > 0 {
		s.MeasuredFPS = float64(p.steps) / s.WallTime
		s.RealtimeFactor = p.simTime / s.WallTime
	}
	return s
}

// Suspend stops the wall clock, so paused time does not dilute the
// measured rate.
func (p *PerformanceMetrics) Suspend() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.banked += p.now().Sub(p.start)
		p.running = false
	}
}

// Resume restarts a suspended wall clock. Before the first step it does
// nothing; the first step starts the clock.
func (p *PerformanceMetrics) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started && !p.running {
		p.start = p.now()
		p.running = true
	}
}

func (p *PerformanceMetrics) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started, p.running = false, false
	p.banked = 0
	p.steps = 0
	p.minStep, p.maxStep, p.total = 0, 0, 0
	p.simTime = 0
}
