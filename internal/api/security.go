package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/quitanda/backend/internal/domain/auth"
	"github.com/quitanda/backend/pkg/httpmiddleware"
)

// APIKeyHeader carries the client's API key.
const APIKeyHeader = "api_key"

// APIKeyAuth returns a middleware that authenticates requests by HMAC-hashing
// the provided API key with the server pepper, looking the hash up, and
// performing a constant-time comparison to prevent timing attacks.
func APIKeyAuth(keys auth.Repository, pepper []byte) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(APIKeyHeader)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(raw))
			sum := mac.Sum(nil)

			key, err := keys.FindByHash(r.Context(), hex.EncodeToString(sum))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Constant-time comparison guards against timing side-channels even
			// though the lookup already succeeded: the stored hash could differ
			// from what we computed if the repository returns a stale row.
			stored, err := hex.DecodeString(key.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(sum, stored) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
