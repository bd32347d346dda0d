package metrics

import (
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	helpEscaper       = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
	labelValueEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)
)

// Render returns the text exposition of every instrument.
//
// Instruments appear in declaration order and series in the order they were
// first written, so two renders without intervening writes are identical.
// Each series is read under its instrument's lock; there is no snapshot
// across instruments.
func (r *Registry) Render() string {
	var b strings.Builder
	r.render(&b)
	return b.String()
}

// WriteTo writes the text exposition to w. It implements io.WriterTo.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	r.render(&b)
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func (r *Registry) render(b *strings.Builder) {
	r.mu.RLock()
	insts := make([]*instrument, len(r.order))
	copy(insts, r.order)
	r.mu.RUnlock()

	for _, inst := range insts {
		inst.writeTo(b)
	}
}

func (inst *instrument) writeTo(b *strings.Builder) {
	b.WriteString("# HELP ")
	b.WriteString(inst.name)
	b.WriteByte(' ')
	b.WriteString(helpEscaper.Replace(inst.help))
	b.WriteString("\n# TYPE ")
	b.WriteString(inst.name)
	b.WriteByte(' ')
	b.WriteString(inst.kind.String())
	b.WriteByte('\n')

	inst.mu.Lock()
	defer inst.mu.Unlock()

	for _, s := range inst.order {
		if inst.kind != KindHistogram {
			writeLine(b, inst.name, inst.labels, s.labelValues, "", "", s.value)
			continue
		}

		bucketName := inst.name + "_bucket"
		for i, bound := range inst.buckets {
			writeLine(b, bucketName, inst.labels, s.labelValues, "le", formatValue(bound), float64(s.counts[i]))
		}
		writeLine(b, bucketName, inst.labels, s.labelValues, "le", "+Inf", float64(s.count))
		writeLine(b, inst.name+"_sum", inst.labels, s.labelValues, "", "", s.sum)
		writeLine(b, inst.name+"_count", inst.labels, s.labelValues, "", "", float64(s.count))
	}
}

// writeLine writes one sample line. extraName/extraValue append a trailing
// label such as le when extraName is non-empty.
func writeLine(b *strings.Builder, name string, labels, values []string, extraName, extraValue string, v float64) {
	b.WriteString(name)
	if len(labels) > 0 || extraName != "" {
		b.WriteByte('{')
		for i, l := range labels {
			if i > 0 {
				b.WriteByte(',')
			}
			writeLabel(b, l, values[i])
		}
		if extraName != "" {
			if len(labels) > 0 {
				b.WriteByte(',')
			}
			writeLabel(b, extraName, extraValue)
		}
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(formatValue(v))
	b.WriteByte('\n')
}

func writeLabel(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(labelValueEscaper.Replace(value))
	b.WriteByte('"')
}

// formatValue prints v in its shortest decimal form without an exponent, so
// 85000000 renders as "85000000" rather than "8.5e+07".
func formatValue(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
