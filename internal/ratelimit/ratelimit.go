// Package ratelimit provides a per-IP rate limiting middleware used to
// throttle uploads.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PerIP limits each client IP to a fixed number of requests per window.
type PerIP struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
}

// NewPerIP creates a limiter allowing max requests per window from each IP.
func NewPerIP(max int, window time.Duration) *PerIP {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Second
	}

	return &PerIP{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(max)),
		burst:    max,
		ttl:      3 * window,
	}
}

// Allow reports whether a request from the given IP may proceed.
func (p *PerIP) Allow(ip string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.visitors[ip]
	if !ok {
		p.pruneLocked()
		v = &visitor{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	return v.limiter.Allow()
}

// pruneLocked drops visitors that have been idle longer than the ttl.
// Caller must hold the mutex.
func (p *PerIP) pruneLocked() {
	cutoff := time.Now().Add(-p.ttl)
	for ip, v := range p.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(p.visitors, ip)
		}
	}
}

// Middleware returns a Gin middleware enforcing the limit, responding with
// 429 when it is exceeded.
func (p *PerIP) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !p.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many uploads, please try again later",
			})
			return
		}
		c.Next()
	}
}
