package middleware

import (
	"net/http"

	edgeAuth "github.com/MrEthical07/edgeAuth"
)

// Edge serves the engine's LoginPath and LogoutPath and applies [Guard] to
// every other path.
func Edge(engine *edgeAuth.Engine, opts ...Option) func(http.Handler) http.Handler {
	guard := Guard(engine, opts...)

	return func(next http.Handler) http.Handler {
		if engine == nil {
			return guard(next)
		}

		cfg := engine.Config()
		login := LoginHandler(engine)
		logout := LogoutHandler(engine)
		guarded := guard(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case cfg.LoginPath:
				login.ServeHTTP(w, r)
			case cfg.LogoutPath:
				logout.ServeHTTP(w, r)
			default:
				guarded.ServeHTTP(w, r)
			}
		})
	}
}
