package health

import (
	"encoding/json"
	"net/http"
	"runtime"

	"golang.org/x/time/rate"

	"mercator-hq/arbiter/pkg/config"
)

// VersionInfo contains build information about the binary.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// LivenessHandler returns an HTTP handler for liveness probes.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, r, http.StatusOK, c.CheckLiveness(r.Context()))
	}
}

// ReadinessHandler returns an HTTP handler for readiness probes. It answers
// 503 when any check fails.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := c.CheckReadiness(r.Context())
		code := http.StatusOK
		if status.Status != StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
	}
}

// VersionHandler returns an HTTP handler that reports build information.
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, r, http.StatusOK, info)
	}
}

// Register mounts the liveness, readiness and version endpoints on mux.
// Readiness runs store pings, so it is rate limited to requestsPerSecond
// (zero disables limiting).
func Register(mux *http.ServeMux, checker *Checker, cfg config.HealthConfig, info VersionInfo, requestsPerSecond int) {
	mux.HandleFunc(cfg.LivenessPath, checker.LivenessHandler())
	mux.HandleFunc(cfg.ReadinessPath, RateLimitedHandler(checker.ReadinessHandler(), requestsPerSecond))
	mux.HandleFunc("/version", VersionHandler(info.Version, info.Commit, info.BuildTime))
}

// RateLimitedHandler wraps a handler with a token bucket limiter. Requests
// over the limit get 429.
func RateLimitedHandler(handler http.HandlerFunc, requestsPerSecond int) http.HandlerFunc {
	if requestsPerSecond <= 0 {
		return handler
	}

	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		handler(w, r)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(v)
	}
}
