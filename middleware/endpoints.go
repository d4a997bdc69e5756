package middleware

import (
	"net/http"

	edgeAuth "github.com/MrEthical07/edgeAuth"
)

// LoginHandler exchanges the bearer ID token for session cookies. It answers
// 200 with an empty body, or 401 with no cookies.
func LoginHandler(engine *edgeAuth.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		r = withClientIP(r)
		res, err := engine.Login(r.Context(), r)
		if r.Context().Err() != nil {
			return
		}
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		for _, c := range res.SetCookies {
			http.SetCookie(w, c)
		}
		w.WriteHeader(http.StatusOK)
	})
}

// LogoutHandler clears every session cookie and answers 200.
func LogoutHandler(engine *edgeAuth.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if engine != nil {
			for _, c := range engine.Logout() {
				http.SetCookie(w, c)
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}
