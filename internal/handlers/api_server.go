// internal/handlers/api_server.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/imposter/internal/auth"
	"github.com/jason-s-yu/imposter/internal/middleware"
	"github.com/jason-s-yu/imposter/internal/store"
	"github.com/sirupsen/logrus"
)

// Gateway exposes a store backend over HTTP with the same contract as store.Client:
// create, full read, field read, merge patch, and a WebSocket feed of snapshots.
type Gateway struct {
	Store   store.Client
	Issuer  *auth.Issuer
	Logger  logrus.FieldLogger
	Limiter *middleware.RateLimiter
}

// NewGateway wires a gateway for backend.
func NewGateway(backend store.Client, issuer *auth.Issuer, limiter *middleware.RateLimiter, logger logrus.FieldLogger) *Gateway {
	return &Gateway{
		Store:   backend,
		Issuer:  issuer,
		Logger:  logger,
		Limiter: limiter,
	}
}

// Routes returns the gateway's handler tree.
func (g *Gateway) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// room endpoints
	mux.Handle("POST /rooms", g.requireKey(http.HandlerFunc(g.CreateRoomHandler)))
	mux.Handle("GET /rooms/{code}", g.requireKey(http.HandlerFunc(g.GetRoomHandler)))
	mux.Handle("PATCH /rooms/{code}", g.requireKey(http.HandlerFunc(g.PatchRoomHandler)))
	mux.Handle("GET /rooms/{code}/fields/{field}", g.requireKey(http.HandlerFunc(g.GetFieldHandler)))

	// room ws
	mux.Handle("GET /rooms/{code}/subscribe", g.requireKey(http.HandlerFunc(g.SubscribeHandler)))

	var h http.Handler = mux
	if g.Limiter != nil {
		h = g.Limiter.Middleware(h)
	}
	return middleware.LogMiddleware(g.Logger)(h)
}

// requireKey rejects requests without a valid API key.
func (g *Gateway) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing api key")
			return
		}
		if _, err := g.Issuer.Authenticate(key); err != nil {
			g.Logger.WithField("remote", r.RemoteAddr).Warnf("rejected api key: %v", err)
			writeError(w, http.StatusForbidden, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
