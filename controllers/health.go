package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dcode-github/realestate_platform/backend/models"
	"go.uber.org/zap"
)

type healthStatus struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
	Uploads  string `json:"uploads"`
	Time     string `json:"timestamp"`
}

// Health reports whether the store and, when configured, the cache respond.
// A failing store makes the whole check fail with 503.
func Health(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := healthStatus{
			Status:   "ok",
			Store:    d.Store.Mode(),
			Database: "connected",
			Cache:    "disabled",
			Time:     d.now().Format(time.RFC3339),
		}
		if d.Uploads != nil {
			status.Uploads = d.Uploads.Name()
		}
		if err := d.Store.Ping(ctx); err != nil {
			d.Log.Warn("health check: store unreachable", zap.Error(err))
			status.Status = "degraded"
			status.Database = "disconnected"
		}
		if d.Cache.Enabled() {
			status.Cache = "connected"
			if err := d.Cache.Ping(ctx); err != nil {
				d.Log.Warn("health check: cache unreachable", zap.Error(err))
				status.Cache = "disconnected"
			}
		}

		code := http.StatusOK
		if status.Database != "connected" {
			code = http.StatusServiceUnavailable
		}
		respond(w, code, models.APIResponse{
			Success: code == http.StatusOK,
			Message: "Server is running",
			Data:    status,
		})
	}
}
