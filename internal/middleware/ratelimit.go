package middleware

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"

	"fritter/internal/utils"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const maxTrackedClients = 10000

// UserRateLimiter hands out one token bucket per caller. Buckets live in an
// LRU so idle callers are evicted without a sweeper goroutine.
type UserRateLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
}

func NewUserRateLimiter(rps float64, burst int) (*UserRateLimiter, error) {
	return newUserRateLimiter(rps, burst, maxTrackedClients)
}

func newUserRateLimiter(rps float64, burst, trackedClients int) (*UserRateLimiter, error) {
	limiters, err := lru.New[string, *rate.Limiter](trackedClients)
	if err != nil {
		return nil, fmt.Errorf("failed to create limiter cache: %v", err)
	}
	return &UserRateLimiter{
		limiters: limiters,
		rps:      rate.Limit(rps),
		burst:    burst,
	}, nil
}

func (rl *UserRateLimiter) GetLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Get(key); ok {
		return limiter
	}
	limiter := rate.NewLimiter(rl.rps, rl.burst)
	// another request may have raced us here; keep whichever got in first
	if existing, found, _ := rl.limiters.PeekOrAdd(key, limiter); found {
		return existing
	}
	return limiter
}

// Middleware limits mutating requests. Callers are keyed by user ID when the
// auth middleware has run, otherwise by remote address. Reads pass through.
func (rl *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodOptions || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		key := clientKey(r)
		limiter := rl.GetLimiter(key)
		if !limiter.Allow() {
			retryAfter := 1
			if rl.rps > 0 {
				retryAfter = int(math.Ceil(1 / float64(rl.rps)))
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(utils.NewAppError(utils.ErrTooManyRequests, "Too many requests. Please wait.", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if userID, ok := GetUserIDFromContext(r.Context()); ok {
		return "user:" + userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
