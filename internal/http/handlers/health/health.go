// Package health exposes GET /health for load balancers and uptime checks.
//
// The database is required: if it cannot be pinged the endpoint answers
// 503. Redis, MinIO and MongoDB are optional; a failing optional check is
// reported but leaves the status code at 200.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/aanand-mishra/records-api/internal/http/middleware"
	"github.com/aanand-mishra/records-api/internal/utils/response"
)

// Pinger is anything whose connectivity can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one named dependency.
type Check struct {
	Name     string
	Pinger   Pinger
	Required bool
}

type result struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

type report struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Environment string            `json:"environment"`
	Checks      map[string]result `json:"checks"`
}

// CheckHealth pings every check with timeout and reports the outcome.
func CheckHealth(env string, timeout time.Duration, checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.GetLogger(r.Context()).With().Str("operation", "health_check").Logger()

		rep := report{
			Status:      "healthy",
			Timestamp:   time.Now().UTC(),
			Environment: env,
			Checks:      make(map[string]result, len(checks)),
		}
		code := http.StatusOK

		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			start := time.Now()
			err := c.Pinger.Ping(ctx)
			cancel()

			res := result{Status: "healthy", ResponseTime: time.Since(start).String()}
			if err != nil {
				res.Status = "unhealthy"
				res.Error = err.Error()
				log.Error().Err(err).Str("check", c.Name).Msg("health check failed")

				if c.Required {
					rep.Status = "unhealthy"
					code = http.StatusServiceUnavailable
				} else if rep.Status == "healthy" {
					rep.Status = "degraded"
				}
			}
			rep.Checks[c.Name] = res
		}

		response.WriteJSON(w, code, rep)
	}
}
