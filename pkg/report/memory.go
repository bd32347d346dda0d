package report

import (
	"runtime"

	"github.com/prometheus/procfs"
)

// MemoryStats is the process memory breakdown, in bytes.
type MemoryStats struct {
	// HeapTotal is the heap reserved from the OS.
	HeapTotal uint64 `json:"heap_total"`

	// HeapUsed is the heap in use by live and unswept objects.
	HeapUsed uint64 `json:"heap_used"`

	// RSS is the resident set size. It is zero where /proc is unavailable.
	RSS uint64 `json:"rss"`

	// External is memory obtained from the OS outside the heap (stacks,
	// runtime metadata, GC structures).
	External uint64 `json:"external"`
}

// HeapRatio returns HeapUsed / HeapTotal, or zero for an empty heap.
func (m MemoryStats) HeapRatio() float64 {
	if m.HeapTotal == 0 {
		return 0
	}
	return float64(m.HeapUsed) / float64(m.HeapTotal)
}

// ReadMemoryStats reads the current process memory figures.
func ReadMemoryStats() MemoryStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := MemoryStats{
		HeapTotal: ms.HeapSys,
		HeapUsed:  ms.HeapInuse,
		RSS:       residentMemory(),
	}
	if ms.Sys > ms.HeapSys {
		stats.External = ms.Sys - ms.HeapSys
	}
	return stats
}

func residentMemory() uint64 {
	p, err := procfs.Self()
	if err != nil {
		return 0
	}
	stat, err := p.Stat()
	if err != nil {
		return 0
	}
	return uint64(stat.ResidentMemory())
}
