package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey int

const (
	userIDKey contextKey = iota
	userInfoKey
)

// DevUserID is the identity used when no JWT secret is configured.
const DevUserID = "local"

// UserInfo is the authenticated caller.
type UserInfo struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// Claims are the bearer token claims issued by the auth backend. Expires is
// unix seconds; tokens that carry a registered exp claim are checked too.
type Claims struct {
	UserID  string  `json:"user_id"`
	Name    string  `json:"name,omitempty"`
	Expires float64 `json:"expires,omitempty"`
	jwt.RegisteredClaims
}

var errTokenExpired = errors.New("token expired")

// Validate implements jwt.ClaimsValidator.
func (c *Claims) Validate() error {
	if c.Expires > 0 && float64(time.Now().Unix()) > c.Expires {
		return errTokenExpired
	}
	if c.UserID == "" && c.Subject == "" {
		return errors.New("token has no user_id")
	}
	return nil
}

// SignToken issues a token the JWTAuth middleware accepts.
func SignToken(secret, userID string, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:  userID,
		Expires: float64(time.Now().Add(ttl).Unix()),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// JWTAuth validates HS256 bearer tokens and stores the caller in the request
// context.
func JWTAuth(secret string) func(http.Handler) http.Handler {
	secretBytes := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerFromHeader(r.Header.Get("Authorization"))
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
				return
			}

			claims := &Claims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
				return secretBytes, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !parsed.Valid {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			uid := claims.UserID
			if uid == "" {
				uid = claims.Subject
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), UserInfo{UserID: uid, DisplayName: claims.Name})))
		})
	}
}

// DevIdentity runs every request as the local dev user.
func DevIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := UserInfo{UserID: DevUserID, DisplayName: "Local Dev User"}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), info)))
	})
}

func withUser(ctx context.Context, info UserInfo) context.Context {
	ctx = context.WithValue(ctx, userIDKey, info.UserID)
	return context.WithValue(ctx, userInfoKey, info)
}

// userIDFromContext returns the caller set by the identity middleware, or the
// dev user when none ran.
func userIDFromContext(r *http.Request) string {
	if id, ok := r.Context().Value(userIDKey).(string); ok && id != "" {
		return id
	}
	return DevUserID
}

func userInfoFromContext(r *http.Request) UserInfo {
	if info, ok := r.Context().Value(userInfoKey).(UserInfo); ok {
		return info
	}
	return UserInfo{UserID: DevUserID, DisplayName: "Local Dev User"}
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequestLogging returns middleware that logs each request.
func RequestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// CORS adds permissive CORS headers for local development.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming responses (MCP over HTTP) pass through the logger.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
