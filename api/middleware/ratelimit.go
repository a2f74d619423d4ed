package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/learnhub/learnhub/api/web"
	"github.com/learnhub/learnhub/api/weberr"
	"github.com/learnhub/learnhub/rate"
)

// RateLimit bounds the request rate of a single client, keyed by the
// remote address. Meant for the unauthenticated auth endpoints.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !lim.Check(ip) {
				err := errors.New("too many requests")
				return weberr.NewError(err, err.Error(), http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
