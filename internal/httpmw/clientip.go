package httpmw

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type clientIPKey struct{}

// ClientIPOptions configures client IP extraction behavior.
type ClientIPOptions struct {
	// TrustedHops is the number of trusted reverse proxies between the client
	// and this server. 0 = no proxies (X-Forwarded-For ignored), 1 = single
	// load balancer (rightmost XFF entry), 2 = CDN + LB, etc.
	TrustedHops int
}

// ClientIP extracts the client IP address from the request and stores it in
// the context. Default options: no trusted proxies, X-Forwarded-For ignored.
func ClientIP(next http.Handler) http.Handler {
	return ClientIPWithOptions(ClientIPOptions{})(next)
}

// ClientIPWithOptions returns middleware that extracts the client IP using
// the given options.
func ClientIPWithOptions(opts ClientIPOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractRealClientAddr(r, opts.TrustedHops)
			ctx := WithClientIP(r.Context(), ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractRealClientAddr trusts X-Forwarded-For only when the direct peer is a
// private address (our own infrastructure) and trustedHops > 0. Otherwise the
// forwarded headers are stripped so nothing downstream trusts them.
func extractRealClientAddr(r *http.Request, trustedHops int) string {
	if r.RemoteAddr == "" {
		return "0.0.0.0"
	}

	clientAddr, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	ip := net.ParseIP(clientAddr)
	if ip == nil {
		return "0.0.0.0"
	}

	if !ip.IsPrivate() || trustedHops <= 0 {
		r.Header.Del("X-Forwarded-For")
		r.Header.Del("X-Forwarded-Proto")
		return clientAddr
	}

	// trustedHops=1 takes the rightmost X-Forwarded-For entry (single LB in
	// front), N takes the Nth-from-end. Fewer entries than expected proxies
	// means misconfiguration or manipulation: fail closed, use RemoteAddr.
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		idx := len(parts) - trustedHops
		if idx < 0 {
			r.Header.Del("X-Forwarded-For")
			r.Header.Del("X-Forwarded-Proto")
			return clientAddr
		}
		if candidate := strings.TrimSpace(parts[idx]); net.ParseIP(candidate) != nil {
			clientAddr = candidate
		}
	}

	return clientAddr
}

func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}
