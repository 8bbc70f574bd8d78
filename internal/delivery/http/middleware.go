package httpd

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"
)

// SigConfig configures webhook signatures. An empty Secret disables checking.
type SigConfig struct {
	Secret        string
	MaxAgeSeconds int64
}

const (
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// Sign returns the signature a gateway sends for body at unix time ts:
// hex(HMAC-SHA256(secret, body + "." + ts)).
func Sign(secret string, body []byte, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	mac.Write([]byte("." + ts))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureMiddleware authenticates gateway callbacks.
func SignatureMiddleware(cfg SigConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.Secret == "" {
			return next
		}

		fn := func(w http.ResponseWriter, r *http.Request) {
			ts := r.Header.Get(HeaderTimestamp)
			sig := r.Header.Get(HeaderSignature)

			if ts == "" || sig == "" {
				writeError(w, http.StatusUnauthorized, "missing signature headers")
				return
			}

			tsInt, err := strconv.ParseInt(ts, 10, 64)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid timestamp")
				return
			}

			now := time.Now().Unix()
			if cfg.MaxAgeSeconds > 0 && (now-tsInt) > cfg.MaxAgeSeconds {
				writeError(w, http.StatusUnauthorized, "signature expired")
				return
			}

			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "read body error")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			expected := Sign(cfg.Secret, bodyBytes, ts)
			if !hmac.Equal([]byte(expected), []byte(sig)) {
				writeError(w, http.StatusUnauthorized, "invalid signature")
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
