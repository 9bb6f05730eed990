package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"ai-content-boost/internal/domain/ports/repository"
	"ai-content-boost/internal/infra/logging"
)

// Signed request headers. The signature is HMAC-SHA256 over
// "<timestamp>.<raw body>" keyed with the tenant secret, hex encoded.
const (
	HeaderTenantID  = "X-Tenant-Id"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

type ctxKey string

const tenantIDKey ctxKey = "tenant_id"

// TenantFrom returns the tenant id the signature middleware authenticated,
// or "" outside a signed route.
func TenantFrom(ctx context.Context) string {
	id, _ := ctx.Value(tenantIDKey).(string)
	return id
}

func signBytes(secret, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}

// Sign computes the hex signature a client must send for the given body and
// unix-seconds timestamp.
func Sign(secret, timestamp string, body []byte) string {
	return hex.EncodeToString(signBytes(secret, timestamp, body))
}

// Signature authenticates tenant requests. Unknown tenants and bad signatures
// get the same opaque 401; only a timestamp outside the skew window is named,
// so clients can tell clock drift from a broken signer.
func Signature(tenants repository.TenantRepository, maxSkew time.Duration, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logging.With(r.Context(), logger)

			tenantID := r.Header.Get(HeaderTenantID)
			ts := r.Header.Get(HeaderTimestamp)
			sig := r.Header.Get(HeaderSignature)
			if tenantID == "" || ts == "" || sig == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			unix, err := strconv.ParseInt(ts, 10, 64)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if drift := time.Since(time.Unix(unix, 0)); drift > maxSkew || drift < -maxSkew {
				l.Debug().Str("tenant_id", tenantID).Dur("drift", drift).Msg("signed request outside skew window")
				writeError(w, http.StatusUnauthorized, "stale_timestamp")
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable_body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			tenant, err := tenants.FindByID(r.Context(), repository.NoTX, tenantID)
			if err != nil {
				l.Debug().Str("tenant_id", tenantID).Msg("signed request for unknown tenant")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			provided, err := hex.DecodeString(sig)
			if err != nil || !hmac.Equal(provided, signBytes(tenant.Secret, ts, body)) {
				l.Debug().Str("tenant_id", tenantID).Msg("signature mismatch")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := logging.WithTenantID(r.Context(), tenant.ID)
			ctx = context.WithValue(ctx, tenantIDKey, tenant.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
