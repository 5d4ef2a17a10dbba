package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"testdrive/internal/config"
	"testdrive/internal/domain"

	"github.com/rs/zerolog"
)

const (
	PermWriteBookings     = "write:bookings"
	PermReadVehicles      = "read:vehicles"
	PermReadReservations  = "read:reservations"
	apiKeyHeaderDefault   = "x-api-key"
	extraHeaderDefault    = "x-api-extra"
	rateLimitKeyPrefixAPI = "api:"
)

var (
	errMissingCredentials = errors.New("missing api key headers")
	errInvalidAPIKey      = errors.New("invalid api key")
	errInvalidExtra       = errors.New("invalid extra header")
	errPermissionDenied   = errors.New("permission denied")
)

type clientCtxKey struct{}

// HTTPAuth provides API-key auth and per-client rate limiting for HTTP endpoints.
type HTTPAuth struct {
	cfg     config.APIConfig
	clients map[string]config.APIClientKey
	limiter domain.RateLimiter
	logger  *zerolog.Logger
}

func NewHTTPAuth(cfg config.APIConfig, limiter domain.RateLimiter, logger *zerolog.Logger) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m, limiter: limiter, logger: logger}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled {
			client, err := a.checkAuth(r)
			if err != nil {
				statusCode := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), clientCtxKey{}, client.Name))
		}

		if !a.allow(r) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) checkAuth(r *http.Request) (config.APIClientKey, error) {
	apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader()))
	extra := strings.TrimSpace(r.Header.Get(headerOrDefault(a.cfg.Auth.HeaderExtra, extraHeaderDefault)))
	if apiKey == "" || extra == "" {
		return config.APIClientKey{}, errMissingCredentials
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return config.APIClientKey{}, errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return config.APIClientKey{}, errInvalidExtra
	}

	if err := checkPermissions(client, requiredPermission(r)); err != nil {
		return config.APIClientKey{}, err
	}
	return client, nil
}

// checkPermissions treats a client without a permission list as unrestricted.
func checkPermissions(client config.APIClientKey, required string) error {
	if required == "" || len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermission(r *http.Request) string {
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && path == "/book":
		return PermWriteBookings
	case strings.HasPrefix(path, "/vehicles"):
		return PermReadVehicles
	case strings.HasPrefix(path, "/reservations"):
		return PermReadReservations
	}
	return ""
}

// allow fails open when the limiter itself errors.
func (a *HTTPAuth) allow(r *http.Request) bool {
	if a.limiter == nil || a.cfg.RateLimit.Requests <= 0 {
		return true
	}

	window := time.Duration(a.cfg.RateLimit.WindowSeconds) * time.Second
	ok, err := a.limiter.CheckRateLimit(r.Context(), rateLimitKeyPrefixAPI+a.clientKey(r), a.cfg.RateLimit.Requests, window)
	if err != nil {
		a.logger.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		return true
	}
	return ok
}

// clientKey trusts only an authenticated client name; unverified headers never pick the bucket.
func (a *HTTPAuth) clientKey(r *http.Request) string {
	if name, ok := r.Context().Value(clientCtxKey{}).(string); ok && name != "" {
		return name
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func (a *HTTPAuth) apiKeyHeader() string {
	return headerOrDefault(a.cfg.Auth.HeaderAPIKey, apiKeyHeaderDefault)
}

func headerOrDefault(h, def string) string {
	h = strings.TrimSpace(strings.ToLower(h))
	if h == "" {
		return def
	}
	return h
}
