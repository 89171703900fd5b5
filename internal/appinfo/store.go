// Package appinfo tracks process-wide counters reported by /api/stats.
package appinfo

import (
	"runtime"
	"sync/atomic"
	"time"
)

var (
	StartTime = time.Now()

	TotalLocations  atomic.Int64
	TotalImageBytes atomic.Int64
)

// AddLocation is called after a location is stored.
func AddLocation(size int64) {
	TotalLocations.Add(1)
	TotalImageBytes.Add(size)
}

// RemoveLocation is called after a location is deleted.
func RemoveLocation(size int64) {
	TotalLocations.Add(-1)
	TotalImageBytes.Add(-size)
}

// SetInitialStats seeds the counters from the database at startup.
func SetInitialStats(count, size int64) {
	TotalLocations.Store(count)
	TotalImageBytes.Store(size)
}

type Snapshot struct {
	Locations     int64  `json:"locations"`
	ImageBytes    int64  `json:"image_bytes"`
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	RamUsage      uint64 `json:"ram_usage"`
	NumGoroutines int    `json:"num_goroutines"`
}

func Current() Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	up := time.Since(StartTime)
	return Snapshot{
		Locations:     TotalLocations.Load(),
		ImageBytes:    TotalImageBytes.Load(),
		Uptime:        up.Round(time.Second).String(),
		UptimeSeconds: int64(up.Seconds()),
		RamUsage:      m.Alloc,
		NumGoroutines: runtime.NumGoroutine(),
	}
}
