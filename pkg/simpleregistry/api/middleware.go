package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/tendant/simple-registry/pkg/simpleregistry"
)

type authContextKey struct{}

// AuthFromContext returns the token owner stored by BearerToken, or nil
func AuthFromContext(ctx context.Context) *simpleregistry.UserAndToken {
	auth, _ := ctx.Value(authContextKey{}).(*simpleregistry.UserAndToken)
	return auth
}

// BearerToken resolves "Authorization: Bearer <token>" to its user. Requests
// without a valid, unexpired token allowed from the client address are
// rejected with 401. Successful lookups record the token's last use.
func BearerToken(users simpleregistry.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenKey, ok := bearerToken(r)
			if !ok {
				unauthorized(w, r, "authorization required")
				return
			}

			auth, err := users.FindUserAndTokenByTokenKey(ctx, tokenKey)
			if err != nil {
				logger.ErrorContext(ctx, "token lookup failed", "err", err)
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, ErrorResponse{Error: "internal error"})
				return
			}
			if auth == nil {
				unauthorized(w, r, "invalid token")
				return
			}

			now := time.Now().UTC()
			if auth.Token.ExpiredAt != nil && !auth.Token.ExpiredAt.After(now) {
				unauthorized(w, r, "token expired")
				return
			}
			if !clientAllowed(auth.Token.CIDRWhitelist, r.RemoteAddr) {
				logger.WarnContext(ctx, "token used outside its CIDR whitelist", "token_mark", auth.Token.TokenMark, "remote_addr", r.RemoteAddr)
				unauthorized(w, r, "token not allowed from this address")
				return
			}

			token := *auth.Token
			token.LastUsedAt = &now
			if _, err := users.SaveToken(ctx, &token); err != nil {
				logger.WarnContext(ctx, "failed to record token use", "token_mark", token.TokenMark, "err", err)
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, authContextKey{}, auth)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// clientAllowed reports whether remoteAddr falls inside one of the CIDR
// blocks. An empty whitelist allows every address.
func clientAllowed(whitelist []string, remoteAddr string) bool {
	if len(whitelist) == 0 {
		return true
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}

	for _, cidr := range whitelist {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue
		}
		if prefix.Contains(addr.Unmap()) {
			return true
		}
	}
	return false
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="registry"`)
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, ErrorResponse{Error: message})
}
