// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/relabs-tech/fashionera/core/access"
	"github.com/relabs-tech/fashionera/core/logger"
)

// adminAccount is a password account. Only addresses listed in Builder.Admins
// can register one.
type adminAccount struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type adminRegisterBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminLoginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b *Backend) handleAdminAccounts() {
	b.router.HandleFunc("/api/admin/register", b.registerAdmin).Methods(http.MethodPost)
	b.router.HandleFunc("/api/admin/login", b.loginAdmin).Methods(http.MethodPost)
	b.router.HandleFunc("/api/admin/me", access.Require(b.me, RoleAdmin)).Methods(http.MethodGet)
	b.router.HandleFunc("/api/admin/logout", b.logout).Methods(http.MethodPost)
}

func (b *Backend) registerAdmin(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())
	var body adminRegisterBody
	if !b.decodeBody(w, r, "admin-register", &body) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if !b.admins[email] {
		rlog.Warnf("refusing admin registration for %s", email)
		writeError(w, http.StatusForbidden, "This email cannot be registered as admin")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		rlog.WithError(err).Errorln("cannot hash password")
		writeError(w, http.StatusInternalServerError, "cannot register admin")
		return
	}

	b.mutex.Lock()
	if _, exists := b.adminAccounts[email]; exists {
		b.mutex.Unlock()
		writeError(w, http.StatusBadRequest, "Admin already exists")
		return
	}
	b.adminAccounts[email] = &adminAccount{
		ID:           b.nextID("a"),
		Name:         strings.TrimSpace(body.Name),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	b.mutex.Unlock()
	rlog.Infof("registered admin %s", email)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "message": "Admin registered successfully"})
}

func (b *Backend) loginAdmin(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())
	var body adminLoginBody
	if !b.decodeBody(w, r, "admin-login", &body) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	b.mutex.RLock()
	account, ok := b.adminAccounts[email]
	var found adminAccount
	if ok {
		found = *account
	}
	b.mutex.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(found.PasswordHash, []byte(body.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := b.authority.Issue(access.Authorization{UserID: found.ID, Email: found.Email, Name: found.Name, Roles: []string{RoleAdmin}})
	if err != nil {
		rlog.WithError(err).Errorln("cannot issue token")
		writeError(w, http.StatusInternalServerError, "cannot issue token")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: access.CookieName, Value: token, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "admin": found, "token": token})
}

// me answers who the administrator behind the request is. Admins signed in
// with google have no password account and are described by their token.
func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	auth := access.AuthorizationFromContext(r.Context())
	me := adminAccount{ID: auth.UserID, Name: auth.Name, Email: auth.Email}
	b.mutex.RLock()
	if account, ok := b.adminAccounts[strings.ToLower(auth.Email)]; ok && account.ID == auth.UserID {
		me = *account
	}
	b.mutex.RUnlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "admin": me})
}
