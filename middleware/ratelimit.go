package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/go-chi/httprate"
)

// RateLimit limits requests per client IP on the public forms and login.
func RateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(windowLength.Seconds())))
			WriteJSON(w, http.StatusTooManyRequests, models.APIResponse{
				Success: false,
				Message: "Too many requests, please try again later",
			})
		}),
	)
}
