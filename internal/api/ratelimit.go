package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiter enforces the per-client admission window on the convert
// endpoints. Requests over the window are rejected outright, never queued.
type clientLimiter struct {
	mu       sync.Mutex
	clients  map[string]*rate.Limiter
	requests int
	window   time.Duration
}

func newClientLimiter(requests int, window time.Duration) *clientLimiter {
	return &clientLimiter{
		clients:  map[string]*rate.Limiter{},
		requests: requests,
		window:   window,
	}
}

func (l *clientLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.clients[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.window/time.Duration(l.requests)), l.requests)
		l.clients[ip] = lim
	}
	return lim
}

func (l *clientLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests from this IP, please try again later.",
			})
			return
		}
		c.Next()
	}
}
