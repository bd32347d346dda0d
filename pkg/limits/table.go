package limits

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// DefaultAliases binds the resource keys used by the usage tracker to the
// configuration keys their limits are declared under.
func DefaultAliases() map[string]string {
	return map[string]string{
		"bigquery.bytes": "queryEngine.maxBytesProcessed",
		"ai.tokens":      "ai.maxTokens",
		"cache.items":    "cache.maxItems",
		"api.calls":      "api.maxCalls",
	}
}

// MergeAliases returns the default aliases whose targets are declared in
// limits, overlaid with the configured aliases.
func MergeAliases(limits map[string]float64, configured map[string]string) map[string]string {
	merged := make(map[string]string)
	for alias, target := range DefaultAliases() {
		if _, ok := limits[target]; ok {
			merged[alias] = target
		}
	}
	maps.Copy(merged, configured)
	return merged
}

// Table is an immutable mapping from resource key to numeric ceiling. It is
// built once at startup and safe for concurrent reads without locking.
type Table struct {
	limits  map[string]float64
	aliases map[string]string
}

// NewTable copies limits and aliases into a new table.
//
// Ceilings must be finite and non-negative, and every alias must point to a
// declared limit key. Violations are reported as *LimitError wrapping
// ErrConfigInvalid.
//
// Example:
//
//	table, err := limits.NewTable(
//		map[string]float64{"queryEngine.maxBytesProcessed": 100000000},
//		limits.DefaultAliases(),
//	)
func NewTable(limits map[string]float64, aliases map[string]string) (*Table, error) {
	for _, key := range slices.Sorted(maps.Keys(limits)) {
		v := limits[key]
		if key == "" {
			return nil, &LimitError{Key: key, Reason: "empty key", Err: ErrConfigInvalid}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, &LimitError{Key: key, Reason: fmt.Sprintf("ceiling %v must be a finite non-negative number", v), Err: ErrConfigInvalid}
		}
	}

	resolved := make(map[string]string, len(aliases))
	for _, alias := range slices.Sorted(maps.Keys(aliases)) {
		target := aliases[alias]
		if _, ok := limits[target]; !ok {
			return nil, &LimitError{Key: alias, Reason: fmt.Sprintf("alias target %q is not a declared limit", target), Err: ErrConfigInvalid}
		}
		resolved[alias] = target
	}

	return &Table{
		limits:  maps.Clone(limits),
		aliases: resolved,
	}, nil
}

// Get returns the limit for resourceKey. The key is looked up directly
// first, then through the alias table.
func (t *Table) Get(resourceKey string) (float64, bool) {
	_, v, ok := t.resolve(resourceKey)
	return v, ok
}

// LimitKey returns the configuration key that resourceKey resolves to.
func (t *Table) LimitKey(resourceKey string) (string, bool) {
	k, _, ok := t.resolve(resourceKey)
	return k, ok
}

func (t *Table) resolve(resourceKey string) (string, float64, bool) {
	if t == nil {
		return "", 0, false
	}
	if v, ok := t.limits[resourceKey]; ok {
		return resourceKey, v, true
	}
	if target, ok := t.aliases[resourceKey]; ok {
		v, ok := t.limits[target]
		return target, v, ok
	}
	return "", 0, false
}

// Keys returns the declared limit keys in sorted order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.limits))
}

// Len returns the number of declared limits.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.limits)
}

// Evaluate returns the signals raised by cumulative usage of resourceKey.
// A warning is raised when usage > limit*WarningRatio and a critical signal
// is added when usage > limit*CriticalRatio. A resource without a limit
// never raises a signal.
func (t *Table) Evaluate(resourceKey string, usage float64) []ThresholdSignal {
	key, limit, ok := t.resolve(resourceKey)
	if !ok {
		return nil
	}

	var signals []ThresholdSignal
	for _, level := range []struct {
		ratio    float64
		severity Severity
	}{
		{WarningRatio, SeverityWarning},
		{CriticalRatio, SeverityCritical},
	} {
		if usage > limit*level.ratio {
			signals = append(signals, ThresholdSignal{
				Resource: resourceKey,
				LimitKey: key,
				Usage:    usage,
				Limit:    limit,
				Severity: level.severity,
			})
		}
	}
	return signals
}
