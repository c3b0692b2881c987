package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// NewCORSMiddleware allows the comma-separated origins in allowedOrigin ("*" for any).
// Credentials are only allowed for concrete origins.
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	var origins []string
	for _, o := range strings.Split(allowedOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: origins[0] != "*",
		MaxAge:           86400,
	})
}
