package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/garcia-cyber/popcornRDC/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ── Fixed-window limiter per client IP ───────────────────────────────────────

type ventana struct {
	count     int
	windowEnd time.Time
}

// Limiter counts requests per IP inside a fixed window.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu           sync.Mutex
	entries      map[string]*ventana
	proximaPurga time.Time
}

// purgeInterval bounds how long expired windows stay in memory.
const purgeInterval = 5 * time.Minute

func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*ventana),
	}
}

// Permitir records one request for ip and reports whether it fits the window,
// plus the moment the window resets.
func (l *Limiter) Permitir(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.proximaPurga) {
		if n := l.purgarLocked(now); n > 0 {
			log.Debug().Int("purged", n).Int("remaining", len(l.entries)).Msg("rate limiter entries purged")
		}
		l.proximaPurga = now.Add(purgeInterval)
	}
	e, ok := l.entries[ip]
	if !ok || now.After(e.windowEnd) {
		e = &ventana{windowEnd: now.Add(l.window)}
		l.entries[ip] = e
	}
	e.count++
	return e.count <= l.limit, e.windowEnd
}

// Purgar drops expired windows and returns how many were removed.
func (l *Limiter) Purgar() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.purgarLocked(l.now())
}

func (l *Limiter) purgarLocked(now time.Time) int {
	n := 0
	for ip, e := range l.entries {
		if now.After(e.windowEnd) {
			delete(l.entries, ip)
			n++
		}
	}
	return n
}

// Middleware rejects requests over the limit with 429 and the given message.
func (l *Limiter) Middleware(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, reset := l.Permitir(c.ClientIP())
		if !ok {
			c.Header("Retry-After", reset.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter(l *Limiter) gin.HandlerFunc {
	return l.Middleware("Demasiados intentos de login. Intente en 1 minuto.")
}

// ConsultaRateLimiter guards the public barcode lookup.
func ConsultaRateLimiter(l *Limiter) gin.HandlerFunc {
	return l.Middleware("Demasiadas solicitudes. Intente nuevamente en un momento.")
}
