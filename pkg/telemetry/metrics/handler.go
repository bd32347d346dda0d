package metrics

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

// ContentType is the media type of the exposition served by Handler.
var ContentType = string(expfmt.NewFormat(expfmt.TypeTextPlain))

// Handler returns an HTTP handler for the metrics endpoint.
//
// The body is the registry's Render output followed by the families gathered
// from defaults (Go runtime and process collectors, see NewDefaultGatherer).
// defaults may be nil. The handler always answers 200: a gather or encode
// failure is logged and the registry text is still served.
//
// Example:
//
//	gatherer, _ := metrics.NewDefaultGatherer("meter")
//	mux.Handle("/metrics", metrics.Handler(reg, gatherer, logger))
func Handler(reg *Registry, defaults prometheus.Gatherer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "metrics")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		_, _ = reg.WriteTo(&buf)

		if defaults != nil {
			if err := encodeDefaults(&buf, defaults); err != nil {
				logger.Warn("default metrics unavailable", "error", err)
			}
		}

		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	})
}

// encodeDefaults appends whatever families gather returned, even when it
// also reported an error.
func encodeDefaults(buf *bytes.Buffer, g prometheus.Gatherer) error {
	families, gatherErr := g.Gather()

	enc := expfmt.NewEncoder(buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return gatherErr
}

// NewDefaultGatherer returns a Prometheus registry carrying the Go runtime
// and process collectors. When prefix is non-empty every family name is
// prefixed with prefix + "_".
func NewDefaultGatherer(prefix string) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	var registerer prometheus.Registerer = reg
	if prefix != "" {
		registerer = prometheus.WrapRegistererWithPrefix(prefix+"_", reg)
	}

	if err := registerer.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}
	if err := registerer.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}
	return reg, nil
}
