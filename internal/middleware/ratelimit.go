// Package middleware holds the gin middleware shared by every route group.
package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"bitelogs/internal/apperr"
	"bitelogs/internal/auth"
)

// Limit describes an allowance of Requests per Window for a single key.
type Limit struct {
	Name     string
	Requests int
	Window   time.Duration
	Code     string
	Message  string
}

var (
	GeneralLimit = Limit{
		Name: "general", Requests: 100, Window: 15 * time.Minute,
		Code:    "RATE_LIMIT_EXCEEDED",
		Message: "Too many requests, please try again later.",
	}
	LoginLimit = Limit{
		Name: "login", Requests: 5, Window: 15 * time.Minute,
		Code:    "AUTH_RATE_LIMIT_EXCEEDED",
		Message: "Too many authentication attempts, please try again after 15 minutes.",
	}
	RegisterLimit = Limit{
		Name: "register", Requests: 3, Window: time.Hour,
		Code:    "REGISTRATION_RATE_LIMIT_EXCEEDED",
		Message: "Too many accounts created from this IP, please try again after an hour.",
	}
	ReviewLimit = Limit{
		Name: "reviews", Requests: 20, Window: time.Hour,
		Code:    "REVIEW_RATE_LIMIT_EXCEEDED",
		Message: "Too many reviews submitted, please try again later.",
	}
)

// maxKeys bounds the limiter map; past it the map is reset.
const maxKeys = 10000

// RateLimiter keeps one token bucket per key. The bucket holds Requests
// tokens and refills evenly over Window.
type RateLimiter struct {
	limit    Limit
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewRateLimiter(l Limit, log logrus.FieldLogger) *RateLimiter {
	return &RateLimiter{
		limit:    l,
		limiters: make(map[string]*rate.Limiter),
		log:      log,
		now:      time.Now,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxKeys {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		every := rl.limit.Window / time.Duration(rl.limit.Requests)
		limiter = rate.NewLimiter(rate.Every(every), rl.limit.Requests)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Key is the authenticated user id when claims are present, the client
// IP otherwise.
func Key(c *gin.Context) string {
	if v, ok := c.Get(auth.CtxClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok && claims.UserID > 0 {
			return "user:" + strconv.FormatInt(claims.UserID, 10)
		}
	}
	return "ip:" + c.ClientIP()
}

// Handler rejects requests over the limit with 429 and a Retry-After hint.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := Key(c)
		limiter := rl.getLimiter(key)

		now := rl.now()
		if !limiter.AllowN(now, 1) {
			r := limiter.ReserveN(now, 1)
			wait := r.DelayFrom(now)
			r.CancelAt(now)

			rl.log.WithFields(logrus.Fields{
				"limiter": rl.limit.Name,
				"key":     key,
				"method":  c.Request.Method,
				"path":    c.Request.URL.Path,
			}).Warn("rate limit exceeded")

			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			apperr.Respond(c, apperr.RateLimited(rl.limit.Message).WithCode(rl.limit.Code))
			return
		}
		c.Next()
	}
}

// Limiters bundles the per-route limiters. A disabled set hands out nil
// handlers, which route registration treats as "no guard".
type Limiters struct {
	General  gin.HandlerFunc
	Login    gin.HandlerFunc
	Register gin.HandlerFunc
	Reviews  gin.HandlerFunc
}

func NewLimiters(disabled bool, log logrus.FieldLogger) Limiters {
	if disabled {
		return Limiters{}
	}
	return Limiters{
		General:  NewRateLimiter(GeneralLimit, log).Handler(),
		Login:    NewRateLimiter(LoginLimit, log).Handler(),
		Register: NewRateLimiter(RegisterLimit, log).Handler(),
		Reviews:  NewRateLimiter(ReviewLimit, log).Handler(),
	}
}
