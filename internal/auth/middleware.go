// Package auth turns bearer ID tokens into callers with a plan and usage count.
package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/digkill/QuickAI/internal/models"
)

const defaultVerifyTimeout = 5 * time.Second

type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// CallerResolver loads plan and usage for a verified uid.
type CallerResolver interface {
	Caller(ctx context.Context, uid string) (models.Caller, error)
}

type Authenticator struct {
	verifier TokenVerifier
	callers  CallerResolver
	log      *slog.Logger
}

func NewAuthenticator(verifier TokenVerifier, callers CallerResolver, log *slog.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, callers: callers, log: log}
}

type callerKey struct{}

func WithCaller(ctx context.Context, caller models.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFromContext(ctx context.Context) (models.Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(models.Caller)
	return caller, ok
}

// Require rejects requests without a valid bearer token. Plan and usage are read
// fresh on every request.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			respond(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if a == nil || a.verifier == nil {
			respond(w, http.StatusUnauthorized, "Authentication unavailable")
			return
		}

		verified, err := a.verifier.VerifyIDToken(r.Context(), token)
		if err != nil {
			if firebaseauth.IsIDTokenExpired(err) {
				respond(w, http.StatusUnauthorized, "Session expired")
				return
			}
			a.log.Warn("token verification failed", "err", err)
			respond(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		caller, err := a.callers.Caller(r.Context(), verified.UID)
		if err != nil {
			a.log.Error("failed to load caller", "err", err, "user", verified.UID)
			respond(w, http.StatusInternalServerError, "internal error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func respond(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}
