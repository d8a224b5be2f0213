package mcp

import (
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"stockcast/internal/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	defaultMaxBodyBytes int64 = 1 << 20
	defaultPerMinute          = 60
	clientIdleTTL             = 10 * time.Minute
)

// Rejection reasons, also used as the metric label.
const (
	rejectMissingToken = "missing_token"
	rejectBadToken     = "bad_token"
	rejectRateLimited  = "rate_limited"
	rejectBodyTooLarge = "body_too_large"
)

// HTTPHandlerConfig guards the streamable HTTP transport.
type HTTPHandlerConfig struct {
	AuthToken       string
	RateLimitPerMin int
	MaxBodyBytes    int64
	Metrics         *metrics.Recorder
}

// guard checks the bearer token, then a per-client rate, then caps the body.
// Rejected requests never reach the MCP server.
func guard(next http.Handler, cfg HTTPHandlerConfig) http.Handler {
	limit := cfg.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	want := []byte(strings.TrimSpace(cfg.AuthToken))
	clients := newClientLimits(cfg.RateLimitPerMin)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := clientHost(r)
		reject := func(status int, reason, message string) {
			cfg.Metrics.MCPRejected(reason)
			log.Warn().Str("client", host).Str("reason", reason).Str("path", r.URL.Path).Msg("mcp http request rejected")
			writeJSONError(w, status, message)
		}

		got, ok := bearerToken(r)
		if !ok {
			reject(http.StatusUnauthorized, rejectMissingToken, "missing bearer token")
			return
		}
		if len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			reject(http.StatusForbidden, rejectBadToken, "invalid bearer token")
			return
		}
		if wait, ok := clients.allow(host); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds()+0.999)))
			reject(http.StatusTooManyRequests, rejectRateLimited, "rate limit exceeded")
			return
		}
		if r.ContentLength > limit {
			reject(http.StatusRequestEntityTooLarge, rejectBodyTooLarge, "request body too large")
			return
		}
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// clientHost keys rate limits by remote address. Every caller shares the one
// configured token, so the token adds nothing to the key.
func clientHost(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if addr == "" {
		return "unknown"
	}
	return addr
}

type clientLimits struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	clients map[string]*clientLimit
	now     func() time.Time
}

type clientLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimits(perMin int) *clientLimits {
	if perMin <= 0 {
		perMin = defaultPerMinute
	}
	return &clientLimits{
		every:   rate.Every(time.Minute / time.Duration(perMin)),
		burst:   perMin,
		clients: make(map[string]*clientLimit),
		now:     time.Now,
	}
}

// allow spends one token for host. When refused it reports how long until
// the next token.
func (c *clientLimits) allow(host string) (time.Duration, bool) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	cl, ok := c.clients[host]
	if !ok {
		c.prune(now)
		cl = &clientLimit{limiter: rate.NewLimiter(c.every, c.burst)}
		c.clients[host] = cl
	}
	cl.lastSeen = now

	res := cl.limiter.ReserveN(now, 1)
	if !res.OK() {
		return time.Minute, false
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		return wait, false
	}
	return 0, true
}

func (c *clientLimits) prune(now time.Time) {
	for host, cl := range c.clients {
		if now.Sub(cl.lastSeen) > clientIdleTTL {
			delete(c.clients, host)
		}
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
