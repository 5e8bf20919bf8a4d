package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/congregation/internal/auth/store"
	"github.com/aussiebroadwan/congregation/pkg/authsdk"
	"github.com/aussiebroadwan/congregation/pkg/httpx"
	"github.com/aussiebroadwan/congregation/pkg/slogx"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe checking the database and, when configured, the shared reset ledger.
//	@Description	The Google key cache is reported but never makes the service unready.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store, rd Readiness) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := slogx.FromContext(r.Context())
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := &authsdk.HealthChecks{Database: "ok", Ledger: "ok", Google: "disabled"}
		status, code := "ok", http.StatusOK

		if err := st.Ping(ctx); err != nil {
			log.Warn("database not ready", "err", err)
			checks.Database = "error"
			status, code = "degraded", http.StatusServiceUnavailable
		}

		if rd.Ledger != nil {
			if err := rd.Ledger(ctx); err != nil {
				log.Warn("reset ledger not ready", "err", err)
				checks.Ledger = "error"
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}

		if rd.GoogleEnabled {
			checks.Google = "pending"
			if rd.GoogleReady != nil && rd.GoogleReady() {
				checks.Google = "ok"
			}
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
