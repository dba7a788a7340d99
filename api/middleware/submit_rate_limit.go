package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/keyhaven/keyhaven-backend/api/responses"
	"github.com/keyhaven/keyhaven-backend/pkg/config"
	pkgerrors "github.com/keyhaven/keyhaven-backend/pkg/errors"
	"github.com/keyhaven/keyhaven-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// SubmitRateLimitPolicy defines the throttling parameters for the order
// submit surface. The device limit keys on the customer_device_hash the
// storefront already sends, so one NAT-shared IP does not starve everyone
// behind it.
type SubmitRateLimitPolicy struct {
	window      time.Duration
	ipLimit     int
	deviceLimit int
}

// NewSubmitRateLimitPolicy builds a policy from the configured limits.
func NewSubmitRateLimitPolicy(cfg config.SubmitRateLimitConfig) SubmitRateLimitPolicy {
	return SubmitRateLimitPolicy{
		window:      cfg.Window,
		ipLimit:     cfg.IPLimit,
		deviceLimit: cfg.DeviceLimit,
	}
}

func (p SubmitRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.deviceLimit > 0)
}

func (p SubmitRateLimitPolicy) ipKey(ip string) string {
	if ip == "" {
		return ""
	}
	return fmt.Sprintf("rl:ip:submit:%s", ip)
}

func (p SubmitRateLimitPolicy) deviceKey(hash string) string {
	if hash == "" {
		return ""
	}
	return fmt.Sprintf("rl:device:submit:%s", hash)
}

// SubmitRateLimit enforces per-IP and per-device counters on order submits.
func SubmitRateLimit(policy SubmitRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
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

			if policy.deviceLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if hash := extractDeviceHash(body); hash != "" {
					if key := policy.deviceKey(hash); key != "" {
						if allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.deviceLimit)); err != nil {
							responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
							return
						} else if !allowed {
							respondRateLimited(ctx, logg, w, policy, "device", "", hash, count, policy.deviceLimit)
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

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy SubmitRateLimitPolicy, scope, ip, deviceHash string, count int64, limit int) {
	if logg != nil {
		fields := map[string]any{
			"scope":          scope,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		}
		if ip != "" {
			fields["ip"] = ip
		}
		if deviceHash != "" {
			fields["device_hash"] = deviceHash
		}
		logCtx := logg.WithFields(ctx, fields)
		logg.Warn(logCtx, "submit.rate_limit.blocked")
	}
	err := pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded")
	responses.WriteError(ctx, nil, w, err)
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

func extractDeviceHash(payload []byte) string {
	var body struct {
		DeviceHash string `json:"customer_device_hash"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.DeviceHash)
}
