package middleware

import (
	"fmt"
	"net/http"

	"github.com/dcode-github/realestate_platform/backend/models"
	"go.uber.org/zap"
)

// Recover turns a panic into the generic 500 envelope. Detail is only
// included when showDetail is set.
func Recover(log *zap.Logger, showDetail bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic while serving request",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("correlation_id", CorrelationID(r.Context())),
						zap.Stack("stack"),
					)
					resp := models.APIResponse{Success: false, Message: "Server Error"}
					if showDetail {
						resp.Error = fmt.Sprint(rec)
					}
					WriteJSON(w, http.StatusInternalServerError, resp)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
