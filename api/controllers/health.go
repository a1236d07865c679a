package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/brandinbox/brandinbox-backend/api/responses"
	"github.com/brandinbox/brandinbox-backend/pkg/config"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is satisfied by the db, redis, gcs, and bigquery clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BrandInbox-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every backing dependency and reports per-component
// status. Any failing component turns the whole response into a 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		components := map[string]string{}
		ready := true
		for name, dep := range deps {
			if dep == nil {
				components[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				ready = false
				components[name] = "unavailable"
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "component", name), "readiness check failed")
				}
				continue
			}
			components[name] = "ok"
		}

		w.Header().Set("X-BrandInbox-Env", cfg.App.Env)
		status := "ready"
		if !ready {
			status = "degraded"
		}
		body := map[string]any{"status": status, "components": components}
		if !ready {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, body)
			return
		}
		responses.WriteSuccess(w, body)
	}
}

// ReadinessDeps builds the dependency map HealthReady expects. Nil entries
// are reported as skipped rather than failing the probe.
func ReadinessDeps(dbP, redisP, gcsP, bigqueryP Pinger) map[string]Pinger {
	return map[string]Pinger{
		"database": dbP,
		"redis":    redisP,
		"storage":  gcsP,
		"bigquery": bigqueryP,
	}
}
