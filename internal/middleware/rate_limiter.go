package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fakhrymubarak/weather-dashboard/internal/config"
	"golang.org/x/time/rate"
)

// visitor holds the rate limiter and last seen time for one bucket.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet hands out one token bucket per key, created on first use.
type limiterSet struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	perMin   float64
	burst    int
}

func newLimiterSet(perMin float64, burst int) *limiterSet {
	return &limiterSet{visitors: make(map[string]*visitor), perMin: perMin, burst: burst}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, exists := s.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(s.perMin/60.0), s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// evict removes buckets not seen for longer than idle.
func (s *limiterSet) evict(idle time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.visitors {
		if time.Since(v.lastSeen) > idle {
			delete(s.visitors, k)
		}
	}
}

func (s *limiterSet) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitors = make(map[string]*visitor)
}

var (
	// globalVisitors is keyed by client IP.
	globalVisitors = newLimiterSet(config.GetGlobalRateLimiterConfig())
	// paramVisitors is keyed by client IP plus the requested place, so one
	// client can't hammer the provider for the same location.
	paramVisitors = newLimiterSet(config.GetParamRateLimiterConfig())
)

// StartRateLimiterCleanup starts a background goroutine that drops idle buckets.
func StartRateLimiterCleanup() {
	idle := config.GetRateLimiterCleanupTimeout()
	go func() {
		for {
			time.Sleep(time.Minute)
			globalVisitors.evict(idle)
			paramVisitors.evict(idle)
		}
	}()
}

// ResetVisitors clears all visitor states for both global and per-param limiters. Used primarily for testing.
func ResetVisitors() {
	globalVisitors.reset()
	paramVisitors.reset()
}

// getIP extracts the client's IP address from the HTTP request, considering X-Forwarded-For headers.
func getIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // fallback
	}
	return ip
}

// placeKey names the place a request asks about: a location name, a lat/lon
// pair, or a search query. It is empty for requests that name no place.
func placeKey(r *http.Request) string {
	q := r.URL.Query()
	switch {
	case q.Get("location") != "":
		return "location:" + strings.ToLower(strings.TrimSpace(q.Get("location")))
	case q.Get("lat") != "" || q.Get("lon") != "":
		return "coord:" + q.Get("lat") + "," + q.Get("lon")
	case q.Get("q") != "":
		return "search:" + strings.ToLower(strings.TrimSpace(q.Get("q")))
	default:
		return ""
	}
}

// RateLimitMiddleware enforces a global per-IP limit on every request and a per-place
// limit on requests that name a place.
// If the rate limit is exceeded, it responds with a 429 status and a JSON error message.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getIP(r)
		place := placeKey(r)

		if !globalVisitors.get(ip).Allow() {
			writeError(w, http.StatusTooManyRequests, "Too Many Requests (global limit)",
				fmt.Sprintf("Rate limit exceeded: max %d requests per minute per user/IP", globalVisitors.burst))
			return
		}
		// Preferences, device location and refresh name no place and only count globally.
		if place != "" && !paramVisitors.get(ip+"|"+place).Allow() {
			writeError(w, http.StatusTooManyRequests, "Too Many Requests (per-param limit)",
				fmt.Sprintf("Rate limit exceeded: max %d requests per minute per unique param per user/IP", paramVisitors.burst))
			return
		}
		next.ServeHTTP(w, r)
	})
}
