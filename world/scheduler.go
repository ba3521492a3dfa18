package world

import (
	"context"
	"reflect"
	"time"
)

// Frame is passed to every system during one tick.
type Frame struct {
	Tick      int64
	DeltaTime float64
	Game      *Game
	deferred  []func()
}

// Defer queues fn to run after every system has executed this tick.
func (f *Frame) Defer(fn func()) {
	f.deferred = append(f.deferred, fn)
}

func (f *Frame) flush() {
	for _, fn := range f.deferred {
		fn()
	}
	f.deferred = f.deferred[:0]
}

// System is per-tick behavior. Systems may keep state, including objects,
// between ticks.
type System interface {
	Execute(frame *Frame)
}

// SystemFunc adapts a function to System.
type SystemFunc func(frame *Frame)

func (fn SystemFunc) Execute(frame *Frame) { fn(frame) }

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

// Scheduler advances the game clock and runs systems in registration order.
type Scheduler struct {
	game        *Game
	systems     []System
	systemStats []*systemStatsInternal
	frame       Frame
}

func NewScheduler(game *Game) *Scheduler {
	return &Scheduler{
		game:    game,
		systems: make([]System, 0),
		frame:   Frame{Game: game},
	}
}

// Register adds a system to the scheduler.
func (s *Scheduler) Register(system System) {
	s.systems = append(s.systems, system)

	name := "SystemFunc"
	if _, ok := system.(SystemFunc); !ok {
		systemType := reflect.TypeOf(system)
		if systemType.Kind() == reflect.Ptr {
			systemType = systemType.Elem()
		}
		name = systemType.Name()
	}

	s.systemStats = append(s.systemStats, &systemStatsInternal{
		name:        name,
		minDuration: time.Duration(1<<63 - 1),
	})
}

// Once ticks the game and executes all registered systems once with the
// given delta time.
func (s *Scheduler) Once(dt float64) {
	s.game.Tick()

	frame := &s.frame
	frame.Tick = s.game.TickIndex()
	frame.DeltaTime = dt

	for i, system := range s.systems {
		start := time.Now()
		system.Execute(frame)
		duration := time.Since(start)

		stats := s.systemStats[i]
		stats.executionCount++
		stats.lastDuration = duration
		stats.totalDuration += duration

		if duration < stats.minDuration {
			stats.minDuration = duration
		}
		if duration > stats.maxDuration {
			stats.maxDuration = duration
		}
	}

	frame.flush()
}

// Run executes ticks at the given interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			s.Once(dt)
		}
	}
}

// GetStats returns statistics about system execution.
func (s *Scheduler) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.systems),
		Systems:     make([]SystemStats, len(s.systemStats)),
	}

	var totalExecs int64
	for i, internal := range s.systemStats {
		avgDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		}

		stats.Systems[i] = SystemStats{
			Name:           internal.name,
			ExecutionCount: internal.executionCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
