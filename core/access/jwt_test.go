// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package access

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorization_HasRole(t *testing.T) {
	auth := &Authorization{UserID: "u1", Roles: []string{"admin"}}
	if !auth.HasRole("admin") {
		t.Fatal("admin role missing")
	}
	if auth.HasRole("editor") {
		t.Fatal("unexpected role")
	}
	// nil authorizations have no roles
	auth = nil
	if auth.HasRole("admin") {
		t.Fatal("nil authorization must not have roles")
	}
}

func TestAuthorization_Context(t *testing.T) {
	auth := &Authorization{UserID: "u1"}
	ctx := auth.ContextWithAuthorization(context.Background())
	assert.Equal(t, auth, AuthorizationFromContext(ctx))
	assert.Nil(t, AuthorizationFromContext(context.Background()))
}

func testAuthority() (*JwtAuthority, *mux.Router) {
	authority := NewJwtAuthority(JwtAuthorityBuilder{Secret: []byte("s3cr3t"), Issuer: "fashionera"})
	router := mux.NewRouter()
	router.Use(authority.Middleware())
	router.HandleFunc("/open", func(w http.ResponseWriter, r *http.Request) {
		if auth := AuthorizationFromContext(r.Context()); auth != nil {
			w.Write([]byte(auth.UserID))
		}
	})
	router.HandleFunc("/members", Require(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("welcome"))
	}))
	router.HandleFunc("/admin", Require(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("welcome admin"))
	}, "admin"))
	return authority, router
}

func call(router *mux.Router, path, token string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)
	return rec
}

func TestJwtMiddleware(t *testing.T) {
	authority, router := testAuthority()

	rec := call(router, "/open", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(router, "/members", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(router, "/open", "garbage").Code)

	token, err := authority.Issue(Authorization{UserID: "u1", Email: "ada@example.com", Roles: []string{"user"}})
	require.NoError(t, err)

	rec = call(router, "/open", token)
	assert.Equal(t, "u1", rec.Body.String())
	assert.Equal(t, http.StatusOK, call(router, "/members", token).Code)
	assert.Equal(t, http.StatusForbidden, call(router, "/admin", token).Code)

	admin, err := authority.Issue(Authorization{UserID: "u2", Roles: []string{"admin"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, call(router, "/admin", admin).Code)

	authority.Revoke(token)
	assert.Equal(t, http.StatusUnauthorized, call(router, "/members", token).Code)
}

func TestJwtCookie(t *testing.T) {
	authority, router := testAuthority()
	token, err := authority.Issue(Authorization{UserID: "u1"})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/open", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)
	assert.Equal(t, "u1", rec.Body.String())
}

func TestJwtRejectsForeignTokens(t *testing.T) {
	authority, _ := testAuthority()

	other := NewJwtAuthority(JwtAuthorityBuilder{Secret: []byte("other"), Issuer: "fashionera"})
	token, _ := other.Issue(Authorization{UserID: "u1"})
	_, err := authority.Verify(token)
	assert.Error(t, err)

	wrongIssuer := NewJwtAuthority(JwtAuthorityBuilder{Secret: []byte("s3cr3t"), Issuer: "somebody"})
	token, _ = wrongIssuer.Issue(Authorization{UserID: "u1"})
	_, err = authority.Verify(token)
	assert.Error(t, err)

	expired := NewJwtAuthority(JwtAuthorityBuilder{Secret: []byte("s3cr3t"), Issuer: "fashionera", TTL: -time.Minute})
	token, _ = expired.Issue(Authorization{UserID: "u1"})
	_, err = authority.Verify(token)
	assert.Error(t, err)
}

func TestJwtVerifiedTokenExpires(t *testing.T) {
	authority := NewJwtAuthority(JwtAuthorityBuilder{Secret: []byte("s3cr3t"), Issuer: "fashionera", TTL: time.Hour})
	now := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	authority.now = func() time.Time { return now }

	token, err := authority.Issue(Authorization{UserID: "u1"})
	require.NoError(t, err)
	auth, err := authority.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", auth.UserID)

	// second verification is served from the cache
	now = now.Add(59 * time.Minute)
	_, err = authority.Verify(token)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = authority.Verify(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
	assert.Nil(t, authority.cache.Read(token, now))
}

func TestJwtRevokeWhileVerifying(t *testing.T) {
	for round := 0; round < 50; round++ {
		authority, _ := testAuthority()
		token, err := authority.Issue(Authorization{UserID: "u1"})
		require.NoError(t, err)

		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for n := 0; n < 20; n++ {
					authority.Verify(token)
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			authority.Revoke(token)
		}()
		close(start)
		wg.Wait()

		_, err = authority.Verify(token)
		require.Error(t, err, "round %d", round)
		assert.Nil(t, authority.cache.Read(token, time.Now()), "round %d", round)
	}
}

func TestJwtForgetsExpiredRevocations(t *testing.T) {
	authority := NewJwtAuthority(JwtAuthorityBuilder{Secret: []byte("s3cr3t"), Issuer: "fashionera", TTL: time.Hour})
	now := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	authority.now = func() time.Time { return now }

	old, _ := authority.Issue(Authorization{UserID: "u1"})
	authority.Revoke(old)
	now = now.Add(2 * time.Hour)
	fresh, _ := authority.Issue(Authorization{UserID: "u1"})
	authority.Revoke(fresh)

	assert.Len(t, authority.revoked, 1)
	_, err := authority.Verify(old)
	assert.Error(t, err)
}
