package app

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/orcaust/orcaust/internal/config"
	"github.com/orcaust/orcaust/internal/rest"
	"github.com/orcaust/orcaust/pkg/user"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const requestIdHeader = "X-Request-Id"

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) {
	r.Use(requestId)
	r.Use(deps.Metrics.Middleware)
	if cfg.RateLimit.Enabled {
		r.Use(newRateLimiter(cfg.RateLimit, time.Now).Middleware)
	}
	r.Use(authenticate(deps.TokenValidator, deps.UserRepo))
}

// requestId reuses the caller's X-Request-Id or generates one, and echoes it on the response.
func requestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(requestIdHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIdHeader, id)
		log.WithFields(log.Fields{
			"requestId": id,
			"method":    req.Method,
			"path":      req.URL.Path,
		}).Debug("Handling request")
		next.ServeHTTP(w, req)
	})
}

// authenticate resolves the bearer token of /api requests into the acting user.
func authenticate(validator *user.TokenValidator, users user.Repo) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !strings.HasPrefix(req.URL.Path, "/api/") {
				next.ServeHTTP(w, req)
				return
			}

			token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				rest.WriteError(w, user.ErrNoUser)
				return
			}
			userId, err := validator.Validate(token)
			if err != nil {
				log.Debugf("rejected bearer token: %v", err)
				rest.WriteError(w, user.ErrInvalidToken)
				return
			}
			u, err := users.GetUser(req.Context(), userId)
			if errors.Is(err, user.ErrUserNotFound) {
				log.Debugf("token subject %d is not a known user", userId)
				rest.WriteError(w, user.ErrInvalidToken)
				return
			}
			if err != nil {
				rest.WriteError(w, err)
				return
			}

			log.Debugf("authenticated user %s", u.Username)
			next.ServeHTTP(w, req.WithContext(user.WithUser(req.Context(), u)))
		})
	}
}

const visitorTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client address.
type rateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

func newRateLimiter(cfg config.RateLimit, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		visitors:  map[string]*visitor{},
		limit:     rate.Limit(cfg.Rps),
		burst:     cfg.Burst,
		now:       now,
		lastSweep: now(),
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > visitorTTL {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (rl *rateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !rl.allow(clientAddress(req)) {
			w.Header().Set("Retry-After", "1")
			rest.WriteJSON(w, http.StatusTooManyRequests, rest.ErrorResponse{Error: "too many requests"})
			return
		}
		next.ServeHTTP(w, req)
	})
}

func clientAddress(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return strings.Trim(req.RemoteAddr, "[]")
	}
	return host
}
