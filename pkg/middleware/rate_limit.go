package middleware

import (
	"net/http"
	"sync"
	"time"

	apperrors "cowork/pkg/errors"
	"cowork/pkg/logger"
)

const MemberIDHeader = "X-Member-ID"

type KeyExtractor func(r *http.Request) string

// MemberRateLimiter is a sliding-window limiter keyed by the calling member.
// Requests without a key are not limited.
type MemberRateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	extractor KeyExtractor
	log       *logger.Logger
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewMemberRateLimiter(limit int, window time.Duration, extractor KeyExtractor, log *logger.Logger) *MemberRateLimiter {
	if extractor == nil {
		extractor = DefaultMemberExtractor
	}
	limiter := &MemberRateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		extractor: extractor,
		log:       log,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *MemberRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, timestamps := range rl.requests {
				if len(timestamps) == 0 || now.Sub(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *MemberRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *MemberRateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	timestamps := rl.requests[key]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

func RateLimit(limiter *MemberRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiter.extractor(r)
			if !limiter.Allow(key) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestIDFrom(r.Context()),
					"member_id", key,
					"path", r.URL.Path,
				)
				writeJSONError(w, http.StatusTooManyRequests, apperrors.CodeBusy, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func DefaultMemberExtractor(r *http.Request) string {
	return r.Header.Get(MemberIDHeader)
}
