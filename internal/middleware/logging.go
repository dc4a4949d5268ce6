package middleware

import (
	"net/http"
	"time"

	"github.com/Varun5711/tokenqueue/internal/logger"
	chimid "github.com/go-chi/chi/v5/middleware"
)

func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimid.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			log.With("request_id", chimid.GetReqID(r.Context())).
				Info("%s %s %d %v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}
