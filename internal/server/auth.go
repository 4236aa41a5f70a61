package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

var (
	errTokenRequired = errors.New("API token is required for non-local access")
	errBadToken      = errors.New("unauthorized")
)

// exportGuard gates every route except /status. Without a configured token
// only loopback, private and link-local clients may export.
type exportGuard struct {
	digest   [sha256.Size]byte
	hasToken bool
	logger   zerolog.Logger
}

func newExportGuard(token string, logger zerolog.Logger) *exportGuard {
	g := &exportGuard{logger: logger}
	if token = strings.TrimSpace(token); token != "" {
		g.digest = sha256.Sum256([]byte(token))
		g.hasToken = true
	}
	return g
}

func (g *exportGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.check(r); err != nil {
			g.logger.Debug().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Err(err).Msg("request rejected")
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *exportGuard) check(r *http.Request) error {
	if r.URL.Path == "/status" {
		return nil
	}
	if !g.hasToken {
		if localClient(r.RemoteAddr) {
			return nil
		}
		return errTokenRequired
	}

	presented := presentedToken(r)
	if presented == "" {
		return errBadToken
	}
	sum := sha256.Sum256([]byte(presented))
	if subtle.ConstantTimeCompare(sum[:], g.digest[:]) != 1 {
		return errBadToken
	}
	return nil
}

// presentedToken reads a bearer token, falling back to X-API-Token.
func presentedToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.Header.Get("X-API-Token"))
}

func localClient(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(strings.TrimSpace(remoteAddr))
	if err != nil {
		host = strings.TrimSpace(remoteAddr)
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast())
}
