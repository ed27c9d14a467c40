package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/ankiplace/ankiplace/internal/canvas"
)

// SecretHeader carries the shared credential on privileged requests.
const SecretHeader = "X-Ankiplace-Secret"

// authorize checks the presented credential against the session secret.
// The comparison is constant-time so response timing leaks nothing about
// the secret. Neither value is ever logged.
func (s *Server) authorize(r *http.Request) error {
	presented := r.Header.Get(SecretHeader)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(s.secret)) != 1 {
		return canvas.NewUnauthorized("invalid or missing secret key")
	}
	return nil
}
