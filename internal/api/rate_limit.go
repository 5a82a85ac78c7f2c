package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/logocrunch/internal/ratelimit"
)

type RateLimiter interface {
	AllowN(ctx context.Context, subject string, n int) (ratelimit.Decision, error)
}

// allow charges one token per logo. It writes the rejection and returns
// false when the request must stop; limiter outages fail open.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, tokens int) bool {
	if s.rateLimiter == nil {
		return true
	}

	subject := s.subject(r) + ":" + routeLabel(r.URL.Path)
	decision, err := s.rateLimiter.AllowN(r.Context(), subject, tokens)
	if errors.Is(err, ratelimit.ErrExceedsCapacity) {
		s.metrics.rateLimitRejected.WithLabelValues(routeLabel(r.URL.Path)).Inc()
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": "batch is larger than the rate limit allows",
		})
		return false
	}
	if err != nil {
		s.logger.Printf("rate limiter check failed subject=%s err=%v", subject, err)
		return true
	}

	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
	if decision.Allowed {
		return true
	}

	retryAfter := int(decision.RetryAfter.Round(time.Second).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	s.metrics.rateLimitRejected.WithLabelValues(routeLabel(r.URL.Path)).Inc()
	writeJSON(w, http.StatusTooManyRequests, map[string]string{
		"error": "rate limit exceeded",
	})
	return false
}

func (s *Server) subject(r *http.Request) string {
	if subject := strings.TrimSpace(r.Header.Get(s.subjectHeader)); subject != "" {
		return subject
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return "anonymous"
	}
	return host
}
