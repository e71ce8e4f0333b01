package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/clinicsched/libs/auth"
	"github.com/md-rashed-zaman/clinicsched/libs/httpx"
)

const ClinicIDHeader = "X-Clinic-Id"

type tenantKey struct{}

// TenantFromContext returns the clinic id resolved by WithTenant.
func TenantFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tenantKey{}).(string)
	return v
}

func contextWithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// WithTenant resolves the clinic of each request. With a JWT secret the clinic
// comes from the bearer token's clinic_id claim and the header is ignored;
// without one the X-Clinic-Id header is required.
func WithTenant(jwtSecret string) httpx.Middleware {
	jwtSecret = strings.TrimSpace(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tenantID string
			if jwtSecret != "" {
				token, ok := auth.BearerToken(r.Header.Get("Authorization"))
				if !ok {
					w.Header().Set("WWW-Authenticate", `Bearer realm="clinicsched"`)
					httpx.WriteError(w, http.StatusUnauthorized, "missing bearer token", nil)
					return
				}
				claims, err := auth.ParseHS256(token, jwtSecret)
				if err != nil {
					w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
					httpx.WriteError(w, http.StatusUnauthorized, "invalid token", nil)
					return
				}
				tenantID = claims.ClinicID
			} else {
				tenantID = strings.TrimSpace(r.Header.Get(ClinicIDHeader))
				if tenantID == "" {
					httpx.WriteError(w, http.StatusBadRequest, "missing "+ClinicIDHeader+" header", nil)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(contextWithTenant(r.Context(), tenantID)))
		})
	}
}
