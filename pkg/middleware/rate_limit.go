package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Window is a per-IP sliding window: a request is allowed while fewer
// than max requests landed within the last span. State is instance-local
// and resets with the process, which is accepted for this endpoint.
type Window struct {
	mu   sync.Mutex
	span time.Duration
	max  int
	hits map[string][]time.Time

	// injectable for tests
	now func() time.Time
}

func NewWindow(span time.Duration, max int) *Window {
	w := &Window{
		span: span,
		max:  max,
		hits: make(map[string][]time.Time),
		now:  time.Now,
	}

	go w.cleanup(3*time.Minute, time.Minute)

	return w
}

// Allow records the request and reports whether it fits in the window.
func (w *Window) Allow(ip string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	kept := w.hits[ip][:0]

	for _, t := range w.hits[ip] {
		if now.Sub(t) < w.span {
			kept = append(kept, t)
		}
	}

	if len(kept) >= w.max {
		w.hits[ip] = kept
		return false
	}

	w.hits[ip] = append(kept, now)
	return true
}

// Reset forgets everything recorded for ip.
func (w *Window) Reset(ip string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.hits, ip)
}

func (w *Window) cleanup(ttl, interval time.Duration) {
	for {
		time.Sleep(interval)
		w.mu.Lock()
		for ip, times := range w.hits {
			if len(times) == 0 || w.now().Sub(times[len(times)-1]) > ttl {
				delete(w.hits, ip)
			}
		}
		w.mu.Unlock()
	}
}

// NewRateLimiterMiddleware rejects requests that exceed the window with
// a 429.
func NewRateLimiterMiddleware(w *Window) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !w.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests. Please try again shortly",
			})
			return
		}

		c.Next()
	}
}
