package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type rateWindow struct {
	count   int
	resetAt time.Time
}

// RateLimit bounds requests per (client IP, route) within a fixed window.
// In-memory, so limits apply per instance.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		windows = make(map[string]*rateWindow)
	)

	// Expired windows are swept on a timer so the map stays bounded.
	go func() {
		for range time.Tick(window) {
			now := time.Now()
			mu.Lock()
			for key, w := range windows {
				if now.After(w.resetAt) {
					delete(windows, key)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		if maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		key := c.ClientIP() + "|" + c.FullPath()
		now := time.Now()

		mu.Lock()
		w, ok := windows[key]
		if !ok || now.After(w.resetAt) {
			w = &rateWindow{resetAt: now.Add(window)}
			windows[key] = w
		}
		w.count++
		count := w.count
		resetIn := time.Until(w.resetAt)
		mu.Unlock()

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, maxRequests-count)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if count > maxRequests {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}

		c.Next()
	}
}
