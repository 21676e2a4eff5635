package middleware

import (
	"errors"
	"net/http"
	"strings"

	"portalwarga/internal/identity"
	"portalwarga/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSecret []byte

// InitAuth sets the HMAC secret shared with the identity provider. An empty secret is fatal in
// release mode and replaced by a development key otherwise.
func InitAuth(secret string, release bool) {
	if secret == "" {
		if release {
			panic("FATAL: JWT_SECRET is required in release mode")
		}
		secret = "default_super_secret_key" // development fallback only
	}
	jwtSecret = []byte(secret)
}

func GetJWTSecret() []byte {
	if jwtSecret == nil {
		InitAuth("", false)
	}
	return jwtSecret
}

var (
	errMissingToken  = errors.New("authorization is missing")
	errInvalidFormat = errors.New("invalid authorization format, expected 'Bearer <token>'")
	errInvalidClaims = errors.New("invalid token claims")
)

// ParseToken validates an HS256 token and extracts the subject and role claims.
func ParseToken(tokenString string) (identity.Subject, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return GetJWTSecret(), nil
	})
	if err != nil {
		return identity.Subject{}, err
	}
	if !token.Valid {
		return identity.Subject{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity.Subject{}, errInvalidClaims
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return identity.Subject{}, err
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return identity.Subject{}, errInvalidClaims
	}
	role, _ := claims["role"].(string)

	return identity.Subject{ID: id, Role: role}, nil
}

func tokenFromRequest(c *gin.Context) (string, error) {
	// Cookie first, then Authorization header.
	if tokenString, err := c.Cookie("access_token"); err == nil && tokenString != "" {
		return tokenString, nil
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", errMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errInvalidFormat
	}
	return parts[1], nil
}

// RequireRole validates the token and, when allowedRoles is not empty, checks the token role
// against it. The subject is stored both in gin keys and in the request context.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFromRequest(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		subject, err := ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		if len(allowedRoles) > 0 && !containsRole(allowedRoles, subject.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set("userID", subject.ID.String())
		c.Set("userRole", subject.Role)
		c.Request = c.Request.WithContext(identity.WithSubject(c.Request.Context(), subject))

		c.Next()
	}
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
