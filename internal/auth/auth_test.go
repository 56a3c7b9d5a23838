package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/caiwu/internal/auth"
)

func protected(t *testing.T, v *auth.Verifier) http.Handler {
	t.Helper()

	return v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := auth.FromContext(r.Context()); ok {
			w.Header().Set("X-Subject", claims.Subject)
		}

		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestMiddleware(t *testing.T) {
	v := auth.NewVerifier("s3cret")

	valid, err := v.Issue("finance-team", time.Hour)
	require.NoError(t, err)

	expired, err := v.Issue("finance-team", -time.Hour)
	require.NoError(t, err)

	otherKey, err := auth.NewVerifier("other").Issue("finance-team", time.Hour)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "finance-team",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	type testCase struct {
		name        string
		header      string
		wantStatus  int
		wantSubject string
	}

	tests := []testCase{
		{name: "Valid", header: "Bearer " + valid, wantStatus: http.StatusNoContent, wantSubject: "finance-team"},
		{name: "LowercaseScheme", header: "bearer " + valid, wantStatus: http.StatusNoContent, wantSubject: "finance-team"},
		{name: "Missing", header: "", wantStatus: http.StatusUnauthorized},
		{name: "WrongScheme", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
		{name: "Expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "WrongKey", header: "Bearer " + otherKey, wantStatus: http.StatusUnauthorized},
		{name: "NoneAlgorithm", header: "Bearer " + noneAlg, wantStatus: http.StatusUnauthorized},
		{name: "Garbage", header: "Bearer not.a.token", wantStatus: http.StatusUnauthorized},
	}

	h := protected(t, v)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantSubject, rec.Header().Get("X-Subject"))

			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"message":`)
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestMiddleware_DisabledWithoutSecret(t *testing.T) {
	v := auth.NewVerifier("")
	assert.Nil(t, v)

	rec := httptest.NewRecorder()
	protected(t, v).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/loans", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
