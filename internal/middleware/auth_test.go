package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portalwarga/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", RequireRole(roles...), func(c *gin.Context) {
		subject, ok := identity.SubjectFromContext(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, subject.ID.String()+"|"+subject.Role)
	})
	return r
}

func TestRequireRole(t *testing.T) {
	InitAuth("test-secret", false)
	userID := uuid.New()
	valid := signToken(t, "test-secret", jwt.MapClaims{
		"sub":  userID.String(),
		"role": "ketua",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name       string
		roles      []string
		header     string
		cookie     string
		wantStatus int
	}{
		{name: "missing token", wantStatus: http.StatusUnauthorized},
		{name: "bad format", header: "Token " + valid, wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": userID.String()}), wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, "test-secret", jwt.MapClaims{
			"sub": userID.String(), "exp": time.Now().Add(-time.Hour).Unix(),
		}), wantStatus: http.StatusUnauthorized},
		{name: "subject not a uuid", header: "Bearer " + signToken(t, "test-secret", jwt.MapClaims{"sub": "42"}), wantStatus: http.StatusUnauthorized},
		{name: "any authenticated", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "allowed role", roles: []string{"admin", "ketua"}, header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "denied role", roles: []string{"bendahara"}, header: "Bearer " + valid, wantStatus: http.StatusForbidden},
		{name: "cookie", cookie: valid, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			newRouter(tt.roles...).ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				require.Equal(t, userID.String()+"|ketua", w.Body.String())
			}
		})
	}
}

func TestInitAuthPanicsInReleaseWithoutSecret(t *testing.T) {
	require.Panics(t, func() { InitAuth("", true) })
	require.NotPanics(t, func() { InitAuth("", false) })
	require.Equal(t, []byte("default_super_secret_key"), GetJWTSecret())
}
