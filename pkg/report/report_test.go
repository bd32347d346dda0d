package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0.00 B"},
		{1, "1.00 B"},
		{1023, "1023.00 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048576, "1.00 MB"},
		{1073741824, "1.00 GB"},
		{5 * 1099511627776, "5.00 TB"},
		{2048 * 1099511627776, "2048.00 TB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in), "FormatBytes(%d)", tt.in)
	}
}

func ptr(v float64) *float64 { return &v }

func testInput() Input {
	return Input{
		ID:          "r-1",
		Timestamp:   time.Date(2026, 10, 18, 12, 0, 0, 0, time.FixedZone("CEST", 7200)),
		Memory:      MemoryStats{HeapTotal: 1073741824, HeapUsed: 1536, RSS: 0, External: 1048576},
		Uptime:      90*time.Second + 500*time.Millisecond,
		Environment: "production",
		Resources: []ResourceUsage{
			{Resource: "bigquery.bytes", Usage: 85000000, Limit: ptr(100000000)},
			{Resource: "cache.items", Usage: 12},
			{Resource: "ai.tokens", Usage: 5, Limit: ptr(0)},
		},
	}
}

func TestBuild(t *testing.T) {
	r := Build(testInput())

	assert.Equal(t, "r-1", r.ID)
	assert.Equal(t, time.UTC, r.Timestamp.Location())
	assert.Equal(t, 10, r.Timestamp.Hour())
	assert.Equal(t, MemoryReport{HeapTotal: "1.00 GB", HeapUsed: "1.50 KB", RSS: "0.00 B", External: "1.00 MB"}, r.Memory)
	assert.Equal(t, uint64(1073741824), r.MemoryBytes.HeapTotal)
	assert.Equal(t, 90.5, r.UptimeSeconds)
	assert.Equal(t, "production", r.Environment)

	require.Len(t, r.TopResources, 3)
	require.NotNil(t, r.TopResources[0].Percentage)
	assert.InDelta(t, 85.0, *r.TopResources[0].Percentage, 1e-9)
	assert.Nil(t, r.TopResources[1].Limit)
	assert.Nil(t, r.TopResources[1].Percentage)
	assert.NotNil(t, r.TopResources[2].Limit)
	assert.Nil(t, r.TopResources[2].Percentage, "zero limit has no percentage")
}

func TestBuild_IsPure(t *testing.T) {
	in := testInput()
	a, b := Build(in), Build(in)
	assert.Equal(t, a, b)

	*in.Resources[0].Limit = 1
	assert.Equal(t, 100000000.0, *a.TopResources[0].Limit, "report must not alias input")
}

func TestUsageReport_JSON(t *testing.T) {
	data, err := json.Marshal(Build(testInput()))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{"id", "timestamp", "memory", "memory_bytes", "uptime_seconds", "environment", "top_resources"} {
		assert.Contains(t, decoded, key)
	}
	assert.Equal(t, "2026-10-18T10:00:00Z", decoded["timestamp"])
	memory := decoded["memory"].(map[string]any)
	assert.Equal(t, "1.00 GB", memory["heap_total"])

	top := decoded["top_resources"].([]any)
	second := top[1].(map[string]any)
	assert.NotContains(t, second, "limit")
}

func TestUsageReport_String(t *testing.T) {
	out := Build(testInput()).String()

	assert.True(t, strings.HasPrefix(out, "Usage report r-1\n"))
	assert.Contains(t, out, "Environment: production")
	assert.Contains(t, out, "Uptime:      1m31s")
	assert.Contains(t, out, "Heap total: 1.00 GB")
	assert.Contains(t, out, "85000000 / 100000000 (85.00%)")
}

func TestUsageReport_Records(t *testing.T) {
	header, rows := Build(testInput()).Records()

	assert.Equal(t, []string{"resource", "usage", "limit", "percentage"}, header)
	assert.Equal(t, [][]string{
		{"bigquery.bytes", "85000000", "100000000", "85.00"},
		{"cache.items", "12", "", ""},
		{"ai.tokens", "5", "0", ""},
	}, rows)
}

func TestNewID(t *testing.T) {
	id := NewID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewID())
}

func TestReadMemoryStats(t *testing.T) {
	m := ReadMemoryStats()
	assert.NotZero(t, m.HeapTotal)
	assert.NotZero(t, m.HeapUsed)
	assert.LessOrEqual(t, m.HeapUsed, m.HeapTotal)
	assert.Greater(t, m.HeapRatio(), 0.0)
	assert.LessOrEqual(t, m.HeapRatio(), 1.0)
}

func TestWithPercentages(t *testing.T) {
	assert.NotNil(t, WithPercentages(nil), "empty input encodes as []")

	limit := 400.0
	out := WithPercentages([]ResourceUsage{{Resource: "ai.tokens", Usage: 1, Limit: &limit}})
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Percentage)
	assert.Equal(t, 0.25, *out[0].Percentage)
}
