// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/relabs-tech/fashionera/core/access"
	"github.com/relabs-tech/fashionera/core/logger"
)

type googleLoginBody struct {
	GoogleID string `json:"googleId"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (b *Backend) handleAccounts() {
	b.router.HandleFunc("/api/auth/google-login", b.googleLogin).Methods(http.MethodPost)
	b.router.HandleFunc("/auth/profile", access.Require(b.profile)).Methods(http.MethodGet)
	b.router.HandleFunc("/auth/logout", b.logout).Methods(http.MethodGet)
}

func (b *Backend) handleAdmin() {
	b.router.HandleFunc("/api/admin/dashboard-stats", access.Require(b.dashboardStats, RoleAdmin)).Methods(http.MethodGet)
	b.router.HandleFunc("/api/admin/users", access.Require(b.listUsers, RoleAdmin)).Methods(http.MethodGet)
}

// googleLogin registers a google principal, or updates it if it is known
// already, and issues a session token for it
func (b *Backend) googleLogin(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())
	var body googleLoginBody
	if !b.decodeBody(w, r, "google-login", &body) {
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		username = strings.SplitN(body.Email, "@", 2)[0]
	}

	b.mutex.Lock()
	var u *user
	for _, candidate := range b.users {
		if candidate.GoogleID == body.GoogleID {
			u = candidate
			break
		}
	}
	if u == nil {
		u = &user{ID: b.nextID("u"), GoogleID: body.GoogleID, CreatedAt: time.Now().UTC()}
		b.users[u.ID] = u
		rlog.Infof("registered user %s", body.Email)
	}
	u.Email = body.Email
	u.Username = username
	registered := *u
	b.mutex.Unlock()

	auth := access.Authorization{UserID: registered.ID, Email: registered.Email, Name: registered.Username, Roles: []string{"user"}}
	if b.admins[strings.ToLower(registered.Email)] {
		auth.Roles = append(auth.Roles, RoleAdmin)
	}
	token, err := b.authority.Issue(auth)
	if err != nil {
		rlog.WithError(err).Errorln("cannot issue token")
		writeError(w, http.StatusInternalServerError, "cannot issue token")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: access.CookieName, Value: token, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": registered, "token": token})
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request) {
	auth := access.AuthorizationFromContext(r.Context())
	b.mutex.RLock()
	u, ok := b.users[auth.UserID]
	var found user
	if ok {
		found = *u
	}
	b.mutex.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": found})
}

// logout revokes the session token and clears the cookie. It succeeds
// without a session, too.
func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	if token := access.TokenFromRequest(r); token != "" {
		b.authority.Revoke(token)
	}
	http.SetCookie(w, &http.Cookie{Name: access.CookieName, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "logged out"})
}

func (b *Backend) dashboardStats(w http.ResponseWriter, r *http.Request) {
	b.mutex.RLock()
	comments := len(b.comments)
	for _, t := range b.topics {
		comments += len(t.Comments)
	}
	data := map[string]int{
		"totalPosts":    len(b.posts),
		"totalUsers":    len(b.users),
		"totalComments": comments,
	}
	b.mutex.RUnlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": data})
}

func (b *Backend) listUsers(w http.ResponseWriter, r *http.Request) {
	b.mutex.RLock()
	users := make([]user, 0, len(b.users))
	for _, u := range b.users {
		users = append(users, *u)
	}
	b.mutex.RUnlock()
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "users": users})
}
