// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package access

import (
	"context"
	"net/http"
	"sync"
	"time"
)

/*
Authorization is a context object which stores authorization information
for a signed in user.

Authorizations are added to a request context with

	ctx = auth.ContextWithAuthorization(ctx)

and retrieved with

	auth := AuthorizationFromContext(ctx)

The JwtAuthority middleware adds them for valid session tokens, passed either
as "Authorization: Bearer" header or as Fashionera-JWT cookie.
*/
type Authorization struct {
	UserID string   `json:"userId"`
	Email  string   `json:"email,omitempty"`
	Name   string   `json:"name,omitempty"`
	Roles  []string `json:"roles"`
}

// HasRole returns true if the authorization contains the requested role;
// otherwise it returns false.
func (a *Authorization) HasRole(role string) bool {
	if a == nil || a.Roles == nil {
		return false
	}
	for _, hasRole := range a.Roles {
		if role == hasRole {
			return true
		}
	}
	return false
}

// ContextWithAuthorization returns a new context with this authorization added to it
func (a *Authorization) ContextWithAuthorization(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKeyAuthorization, a)
}

// AuthorizationFromContext retrieves an authorization from the context
func AuthorizationFromContext(ctx context.Context) *Authorization {
	a, ok := ctx.Value(contextKeyAuthorization).(*Authorization)
	if ok {
		return a
	}
	return nil
}

// Require wraps a handler so it is only called for authorized requests. Without
// authorization it answers http.StatusUnauthorized, without one of the
// requested roles http.StatusForbidden. No roles means any signed in user.
func Require(h http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := AuthorizationFromContext(r.Context())
		if auth == nil {
			http.Error(w, `{"message":"login required"}`, http.StatusUnauthorized)
			return
		}
		if len(roles) > 0 {
			permitted := false
			for _, role := range roles {
				permitted = permitted || auth.HasRole(role)
			}
			if !permitted {
				http.Error(w, `{"message":"not permitted"}`, http.StatusForbidden)
				return
			}
		}
		h(w, r)
	}
}

// AuthorizationCache is an in-memory cache for authorizations. It is used by
// the jwt middleware to cache authorization objects for bearer tokens, so a
// token is parsed and verified only once. Entries carry the token's expiry and
// are dropped once it has passed.
type AuthorizationCache struct {
	mutex sync.RWMutex
	cache map[string]cachedAuthorization
}

type cachedAuthorization struct {
	auth    *Authorization
	expires time.Time
}

// NewAuthorizationCache creates a new authorization cache
func NewAuthorizationCache() *AuthorizationCache {
	return &AuthorizationCache{cache: make(map[string]cachedAuthorization)}
}

// Read returns an authorization from in-process cache, or nil if there is none
// or it has expired at now.
// Token should be the token the authorization was derived from, not any of the ids.
// This function is go-routine safe
func (a *AuthorizationCache) Read(token string, now time.Time) *Authorization {
	a.mutex.RLock()
	entry, ok := a.cache[token]
	a.mutex.RUnlock()
	if !ok {
		return nil
	}
	if !now.Before(entry.expires) {
		a.Evict(token)
		return nil
	}
	return entry.auth
}

// Write stores an authorization in the in-memory cache until expires.
// Token should be the token it was derived from, not any of the ids.
// This function is go-routine safe
func (a *AuthorizationCache) Write(token string, auth *Authorization, expires time.Time) {
	a.mutex.Lock()
	a.cache[token] = cachedAuthorization{auth: auth, expires: expires}
	a.mutex.Unlock()
}

// Evict removes the authorization for token
func (a *AuthorizationCache) Evict(token string) {
	a.mutex.Lock()
	delete(a.cache, token)
	a.mutex.Unlock()
}
