// internal/middleware/security.go
//
// Security-header middleware for the JSON API.
//
// Sets on every response:
//
//   • Strict-Transport-Security  2 years, subdomains included
//   • Content-Security-Policy   nothing may load; responses are data only
//   • X-Frame-Options           DENY
//   • X-Content-Type-Options    nosniff
//   • Referrer-Policy           no-referrer
//   • Cache-Control             no-store (moderation data is never cached)
//
// Notes
// -----
// • Headers are set before next.ServeHTTP; once a handler writes the
//   status line, later header changes are ignored by net/http.  A handler
//   may still override any of them before writing.

package middleware

import "net/http"

var securityHeaders = [][2]string{
	{"Strict-Transport-Security", "max-age=63072000; includeSubDomains"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "no-referrer"},
	{"Cache-Control", "no-store"},
}

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			if h.Get(kv[0]) == "" {
				h.Set(kv[0], kv[1])
			}
		}
		next.ServeHTTP(w, r)
	})
}
