package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/openartmap/openartmap-backend/api/responses"
	pkgerrors "github.com/openartmap/openartmap-backend/pkg/errors"
	"github.com/openartmap/openartmap-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// IntakeRateLimitPolicy defines throttling parameters for the intake surface.
type IntakeRateLimitPolicy struct {
	name           string
	window         time.Duration
	ipLimit        int
	submitterLimit int
}

// NewIntakeRateLimitPolicy builds a policy with the supplied window and limits.
func NewIntakeRateLimitPolicy(name string, window time.Duration, ipLimit, submitterLimit int) IntakeRateLimitPolicy {
	return IntakeRateLimitPolicy{
		name:           strings.ToLower(strings.TrimSpace(name)),
		window:         window,
		ipLimit:        ipLimit,
		submitterLimit: submitterLimit,
	}
}

func (p IntakeRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.submitterLimit > 0)
}

func (p IntakeRateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "intake"
	}
	return p.name
}

func (p IntakeRateLimitPolicy) ipKey(ip string) string {
	if ip == "" {
		return ""
	}
	return fmt.Sprintf("rl:ip:%s:%s", p.normalizedName(), ip)
}

func (p IntakeRateLimitPolicy) submitterKey(hash string) string {
	if hash == "" {
		return ""
	}
	return fmt.Sprintf("rl:submitter:%s:%s", p.normalizedName(), hash)
}

// IntakeRateLimit enforces per-IP and per-submitter counters on intake
// endpoints. Runs after OptionalAuth so the submitter key is resolved.
func IntakeRateLimit(policy IntakeRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := clientIP(r)
			if policy.ipLimit > 0 {
				if key := policy.ipKey(ip); key != "" {
					if allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.ipLimit)); err != nil {
						responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					} else if !allowed {
						respondRateLimited(ctx, logg, w, policy, "ip", ip, "", count, policy.ipLimit)
						return
					}
				}
			}

			if policy.submitterLimit > 0 {
				if submitter := SubmitterKeyFromContext(ctx); submitter != "" {
					hash := hashValue(submitter)
					if key := policy.submitterKey(hash); key != "" {
						if allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.submitterLimit)); err != nil {
							responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
							return
						} else if !allowed {
							respondRateLimited(ctx, logg, w, policy, "submitter", "", hash, count, policy.submitterLimit)
							return
						}
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allow(ctx context.Context, store rateLimiterStore, key string, window time.Duration, limit int64) (bool, int64, error) {
	count, err := store.IncrWithTTL(ctx, key, window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy IntakeRateLimitPolicy, scope, ip, subjectHash string, count int64, limit int) {
	if logg != nil {
		fields := map[string]any{
			"scope":          scope,
			"policy":         policy.normalizedName(),
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		}
		if ip != "" {
			fields["ip"] = ip
		}
		if subjectHash != "" {
			fields["submitter_hash"] = subjectHash
		}
		logCtx := logg.WithFields(ctx, fields)
		logg.Warn(logCtx, "intake.rate_limit.blocked")
	}
	err := pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded")
	responses.WriteError(ctx, nil, w, err)
}

// ClientIP extracts the caller address, trusting forwarding headers first.
func ClientIP(r *http.Request) string {
	return clientIP(r)
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
