// Package ops exposes operational stats for the coordinator process: lobby
// and connection counts alongside process-level CPU and memory readings.
package ops

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

type Stats struct {
	Lobbies       int     `json:"lobbies"`
	Players       int     `json:"players"`
	Connections   int     `json:"connections"`
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryRSS     uint64  `json:"memoryRssBytes"`
}

// Collector samples registry and hub counters through injected closures so it
// stays decoupled from both packages.
type Collector struct {
	lobbyCounts func() (lobbies, players int)
	connCount   func() int
	proc        *process.Process
	started     time.Time
}

func NewCollector(lobbyCounts func() (int, int), connCount func() int) (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Collector{
		lobbyCounts: lobbyCounts,
		connCount:   connCount,
		proc:        proc,
		started:     time.Now(),
	}, nil
}

func (c *Collector) Stats() (*Stats, error) {
	lobbies, players := c.lobbyCounts()

	s := &Stats{
		Lobbies:       lobbies,
		Players:       players,
		Connections:   c.connCount(),
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: time.Since(c.started).Seconds(),
	}

	// CPU and memory readings are best-effort; counts are still useful when
	// the platform denies process inspection.
	if cpu, err := c.proc.CPUPercent(); err == nil {
		s.CPUPercent = cpu
	}
	if mem, err := c.proc.MemoryInfo(); err == nil {
		s.MemoryRSS = mem.RSS
	}

	return s, nil
}
