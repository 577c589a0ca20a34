// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package access

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/fashionera/core/logger"
)

// CookieName is the cookie which may carry the session token instead of the
// authorization header
const CookieName = "Fashionera-JWT"

// JwtAuthorityBuilder is a helper builder for the JwtAuthority
type JwtAuthorityBuilder struct {
	// Secret is the HS256 signing key. This is mandatory.
	Secret []byte
	// Issuer is written into and required from every token
	Issuer string
	// TTL is the token lifetime, default is 24 hours
	TTL time.Duration
}

// JwtAuthority issues and verifies the backend's session tokens
type JwtAuthority struct {
	secret []byte
	issuer string
	ttl    time.Duration
	cache  *AuthorizationCache
	now    func() time.Time

	// revoked maps revoked tokens to their expiry
	mutex   sync.RWMutex
	revoked map[string]time.Time
}

type sessionClaims struct {
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// NewJwtAuthority creates a new authority
func NewJwtAuthority(b JwtAuthorityBuilder) *JwtAuthority {
	if len(b.Secret) == 0 {
		panic("Secret is missing")
	}
	ttl := b.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &JwtAuthority{
		secret:  b.Secret,
		issuer:  b.Issuer,
		ttl:     ttl,
		cache:   NewAuthorizationCache(),
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// Issue returns a signed session token for the authorization
func (j *JwtAuthority) Issue(auth Authorization) (string, error) {
	now := j.now()
	claims := sessionClaims{
		Email: auth.Email,
		Name:  auth.Name,
		Roles: auth.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   auth.UserID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

// Verify parses and verifies a session token. Revoked and expired tokens are
// rejected, also when they had been verified before.
func (j *JwtAuthority) Verify(tokenString string) (*Authorization, error) {
	if j.isRevoked(tokenString) {
		return nil, errors.New("token has been revoked")
	}
	now := j.now()
	if auth := j.cache.Read(tokenString, now); auth != nil {
		return auth, nil
	}

	claims := sessionClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Issuer != j.issuer || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("token has no expiry")
	}
	if !claims.VerifyExpiresAt(now, true) {
		return nil, fmt.Errorf("%w at %s", jwt.ErrTokenExpired, claims.ExpiresAt.Time.Format(time.RFC3339))
	}
	auth := &Authorization{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Roles:  claims.Roles,
	}

	// a Revoke since the check above must not be undone by the cache
	j.mutex.RLock()
	defer j.mutex.RUnlock()
	if _, revoked := j.revoked[tokenString]; revoked {
		return nil, errors.New("token has been revoked")
	}
	j.cache.Write(tokenString, auth, claims.ExpiresAt.Time)
	return auth, nil
}

func (j *JwtAuthority) isRevoked(tokenString string) bool {
	j.mutex.RLock()
	defer j.mutex.RUnlock()
	_, revoked := j.revoked[tokenString]
	return revoked
}

// Revoke invalidates a token before it expires. Revocations of tokens which
// have expired anyway are forgotten.
func (j *JwtAuthority) Revoke(tokenString string) {
	now := j.now()
	expires := now.Add(j.ttl)
	claims := sessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err == nil && claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()
	j.cache.Evict(tokenString)
	j.revoked[tokenString] = expires
	for revoked, until := range j.revoked {
		if !now.Before(until) {
			delete(j.revoked, revoked)
		}
	}
}

// TokenFromRequest extracts the session token from the authorization header or
// the session cookie
func TokenFromRequest(r *http.Request) string {
	bearer := r.Header.Get("Authorization")
	if len(bearer) > 0 && bearer != "null" {
		if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
			return bearer[7:]
		}
		return bearer
	}
	if cookie, _ := r.Cookie(CookieName); cookie != nil {
		return cookie.Value
	}
	return ""
}

// Middleware returns a middleware handler which validates session tokens.
//
// Requests without a token pass unauthorized. A token which is present but
// invalid, expired or revoked is answered with http.StatusUnauthorized.
func (j *JwtAuthority) Middleware() mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AuthorizationFromContext(r.Context()) != nil { // already authorized?
				h.ServeHTTP(w, r)
				return
			}
			tokenString := TokenFromRequest(r)
			if len(tokenString) == 0 {
				h.ServeHTTP(w, r) // no token no auth, moving on
				return
			}
			auth, err := j.Verify(tokenString)
			if err != nil {
				logger.FromContext(r.Context()).WithError(err).Debugln("rejecting session token")
				http.Error(w, `{"message":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := auth.ContextWithAuthorization(r.Context())
			ctx, _ = logger.ContextWithLoggerIdentity(ctx, auth.Email)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
