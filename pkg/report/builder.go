package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Input is everything a report is built from. Build reads nothing else.
type Input struct {
	// ID identifies the report. See NewID.
	ID string

	// Timestamp is when the report was taken.
	Timestamp time.Time

	// Memory is the process memory breakdown.
	Memory MemoryStats

	// Uptime is the process uptime.
	Uptime time.Duration

	// Environment is the deployment environment tag (e.g., "production").
	Environment string

	// Resources are the top resource usages, highest first. Optional.
	Resources []ResourceUsage
}

// UsageReport is an immutable usage snapshot. Only the most recent report is
// kept by the monitor.
type UsageReport struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Memory        MemoryReport    `json:"memory"`
	MemoryBytes   MemoryStats     `json:"memory_bytes"`
	UptimeSeconds float64         `json:"uptime_seconds"`
	Environment   string          `json:"environment"`
	TopResources  []ResourceUsage `json:"top_resources"`
}

// MemoryReport holds the memory breakdown formatted with FormatBytes.
type MemoryReport struct {
	HeapTotal string `json:"heap_total"`
	HeapUsed  string `json:"heap_used"`
	RSS       string `json:"rss"`
	External  string `json:"external"`
}

// ResourceUsage is the cumulative usage of one resource. Limit and
// Percentage are nil for resources without a configured limit.
type ResourceUsage struct {
	Resource   string   `json:"resource"`
	Usage      float64  `json:"usage"`
	Limit      *float64 `json:"limit,omitempty"`
	Percentage *float64 `json:"percentage,omitempty"`
}

// NewID returns a random report identifier.
func NewID() string {
	return uuid.NewString()
}

// Build assembles a report from in. It has no side effects and may be called
// concurrently.
func Build(in Input) *UsageReport {
	r := &UsageReport{
		ID:        in.ID,
		Timestamp: in.Timestamp.UTC(),
		Memory: MemoryReport{
			HeapTotal: FormatBytes(in.Memory.HeapTotal),
			HeapUsed:  FormatBytes(in.Memory.HeapUsed),
			RSS:       FormatBytes(in.Memory.RSS),
			External:  FormatBytes(in.Memory.External),
		},
		MemoryBytes:   in.Memory,
		UptimeSeconds: math.Round(max(in.Uptime.Seconds(), 0)*1000) / 1000,
		Environment:   in.Environment,
		TopResources:  WithPercentages(in.Resources),
	}
	return r
}

// WithPercentages returns a copy of resources with Percentage set, rounded
// to two decimals, for every entry with a positive limit.
func WithPercentages(resources []ResourceUsage) []ResourceUsage {
	out := make([]ResourceUsage, 0, len(resources))
	for _, ru := range resources {
		r := ResourceUsage{Resource: ru.Resource, Usage: ru.Usage}
		if ru.Limit != nil {
			limit := *ru.Limit
			r.Limit = &limit
			if limit > 0 {
				pct := math.Round(ru.Usage/limit*10000) / 100
				r.Percentage = &pct
			}
		}
		out = append(out, r)
	}
	return out
}

// String renders the report as human-readable text.
func (r *UsageReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage report %s\n", r.ID)
	fmt.Fprintf(&b, "  Timestamp:   %s\n", r.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "  Environment: %s\n", r.Environment)
	fmt.Fprintf(&b, "  Uptime:      %s\n", time.Duration(r.UptimeSeconds*float64(time.Second)).Round(time.Second))
	b.WriteString("  Memory:\n")
	fmt.Fprintf(&b, "    Heap total: %s\n", r.Memory.HeapTotal)
	fmt.Fprintf(&b, "    Heap used:  %s\n", r.Memory.HeapUsed)
	fmt.Fprintf(&b, "    RSS:        %s\n", r.Memory.RSS)
	fmt.Fprintf(&b, "    External:   %s\n", r.Memory.External)

	if len(r.TopResources) == 0 {
		return b.String()
	}
	b.WriteString("  Top resources:\n")
	for _, ru := range r.TopResources {
		fmt.Fprintf(&b, "    %-32s %s", ru.Resource, formatNumber(ru.Usage))
		if ru.Limit != nil {
			fmt.Fprintf(&b, " / %s", formatNumber(*ru.Limit))
		}
		if ru.Percentage != nil {
			fmt.Fprintf(&b, " (%.2f%%)", *ru.Percentage)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Records returns the top resources as CSV header and rows.
func (r *UsageReport) Records() ([]string, [][]string) {
	header := []string{"resource", "usage", "limit", "percentage"}
	rows := make([][]string, 0, len(r.TopResources))
	for _, ru := range r.TopResources {
		row := []string{ru.Resource, formatNumber(ru.Usage), "", ""}
		if ru.Limit != nil {
			row[2] = formatNumber(*ru.Limit)
		}
		if ru.Percentage != nil {
			row[3] = strconv.FormatFloat(*ru.Percentage, 'f', 2, 64)
		}
		rows = append(rows, row)
	}
	return header, rows
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
