package server

import (
	"encoding/json"
	"net/http"
	"time"

	"mercator-hq/meter/pkg/report"
)

// UsageResponse is the body of the current usage endpoint.
type UsageResponse struct {
	Timestamp     time.Time              `json:"timestamp"`
	Environment   string                 `json:"environment"`
	UptimeSeconds float64                `json:"uptime_seconds"`
	Resources     []report.ResourceUsage `json:"resources"`
}

// reportHandler serves the latest scheduled usage report, or a freshly built
// one when none has been generated yet. ?format=text returns the plain-text
// summary.
func (s *Server) reportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}

		rep := s.monitor.LatestReport()
		if rep == nil {
			var err error
			rep, err = s.monitor.GenerateReport(r.Context())
			if err != nil {
				s.logger.WarnContext(r.Context(), "usage report unavailable", "error", err)
				writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"error": "usage report unavailable"})
				return
			}
		}

		if r.URL.Query().Get("format") == "text" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			if r.Method != http.MethodHead {
				_, _ = w.Write([]byte(rep.String()))
			}
			return
		}
		writeJSON(w, r, http.StatusOK, rep)
	}
}

// usageHandler serves the cumulative usage of every tracked resource.
func (s *Server) usageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}

		writeJSON(w, r, http.StatusOK, UsageResponse{
			Timestamp:     s.monitor.Now().UTC(),
			Environment:   s.monitor.Environment(),
			UptimeSeconds: s.monitor.Uptime().Seconds(),
			Resources:     report.WithPercentages(s.monitor.Resources(0)),
		})
	}
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(body)
	}
}
