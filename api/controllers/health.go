package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/keyhaven/keyhaven-backend/api/responses"
	"github.com/keyhaven/keyhaven-backend/pkg/config"
	pkgerrors "github.com/keyhaven/keyhaven-backend/pkg/errors"
	"github.com/keyhaven/keyhaven-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger covers the dependencies readiness checks probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-KeyHaven-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the record store and cache before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-KeyHaven-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
