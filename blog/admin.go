// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package blog

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/fashionera/core"
	"github.com/relabs-tech/fashionera/core/client"
	"github.com/relabs-tech/fashionera/core/logger"
	"github.com/relabs-tech/fashionera/core/store"
)

// Admin gives administrators the dashboard, the user list and the list of all
// post comments. All of it requires the admin role on the server.
//
// Administrators either sign in with google, like everybody else, or with a
// password account through Login. While a password account is signed in its
// token is sent with all admin requests instead of the session token.
type Admin struct {
	anonymous client.Client
	session   store.Requester
	requester store.Requester

	mutex sync.RWMutex
	token string

	// Users is the mirror of all registered users. It is read only.
	Users *store.Store[User, readOnly]
	// Comments is the mirror of all post comments, for moderation. Comments can
	// be removed by id.
	Comments *store.Store[Comment, CommentDraft]
}

// adminRequester sends the admin token if there is one, else the session token
type adminRequester struct {
	admin *Admin
}

func (r adminRequester) Request(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	if token := r.admin.adminToken(); token != "" {
		return r.admin.anonymous.WithToken(token).Request(ctx, method, path, body, result)
	}
	return r.admin.session.Request(ctx, method, path, body, result)
}

func newAdmin(anonymous client.Client, session store.Requester, notifier core.Notifier) *Admin {
	a := &Admin{anonymous: anonymous, session: session}
	a.requester = adminRequester{admin: a}
	a.Users = store.New(store.Builder[User, readOnly]{
		Resource: "user",
		Remote: &store.REST[User, readOnly]{
			Requester:  a.requester,
			ListPath:   "/api/admin/users",
			DecodeList: decodeUsers,
		},
		Notifier: notifier,
	})
	a.Comments = store.New(store.Builder[Comment, CommentDraft]{
		Resource: "comment",
		Remote: &store.REST[Comment, CommentDraft]{
			Requester:  a.requester,
			ListPath:   "/api/comments",
			ItemPath:   func(id string) string { return "/comments/" + url.PathEscape(id) },
			DecodeList: decodeComments,
		},
		Notifier: notifier,
	})
	return a
}

// Stats fetches the dashboard counters
func (a *Admin) Stats(ctx context.Context) (DashboardStats, error) {
	var raw []byte
	if err := a.requester.Request(ctx, http.MethodGet, "/api/admin/dashboard-stats", nil, &raw); err != nil {
		return DashboardStats{}, err
	}
	stats, err := decodeStats(raw)
	if err != nil {
		return DashboardStats{}, &core.Failure{Kind: core.KindDecode, Message: "dashboard stats", Err: err}
	}
	return stats, nil
}

// Register creates a password account for an administrator and returns the
// api's confirmation. The api only accepts the addresses it administers.
func (a *Admin) Register(ctx context.Context, draft AdminDraft) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", err
	}
	body := adminRegisterBody{Name: strings.TrimSpace(draft.Name), Email: strings.TrimSpace(draft.Email), Password: draft.Password}
	var response struct {
		Message string `json:"message"`
	}
	if err := a.anonymous.Request(ctx, http.MethodPost, "/api/admin/register", body, &response); err != nil {
		return "", err
	}
	return response.Message, nil
}

// Login signs in with a password account. Until Logout, admin requests carry
// its token.
func (a *Admin) Login(ctx context.Context, email, password string) (User, error) {
	if err := store.Required(
		store.Field{Name: "email", Value: email},
		store.Field{Name: "password", Value: password},
	); err != nil {
		return User{}, err
	}
	var raw []byte
	body := adminLoginBody{Email: strings.TrimSpace(email), Password: password}
	if err := a.anonymous.Request(ctx, http.MethodPost, "/api/admin/login", body, &raw); err != nil {
		return User{}, err
	}
	var response struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &response); err != nil || response.Token == "" {
		if err == nil {
			err = errors.New("no token in response")
		}
		return User{}, &core.Failure{Kind: core.KindDecode, Message: "admin login", Err: err}
	}
	account, err := decodeAdmin(raw)
	if err != nil {
		return User{}, &core.Failure{Kind: core.KindDecode, Message: "admin login", Err: err}
	}

	a.mutex.Lock()
	a.token = response.Token
	a.mutex.Unlock()
	logger.FromContext(ctx).Infof("signed in as administrator %s", account.Email)
	return account, nil
}

// Me returns the administrator the api sees behind the current token. Without
// one the api answers with an HttpError of status 401, for somebody who is not
// an administrator with 403.
func (a *Admin) Me(ctx context.Context) (User, error) {
	var raw []byte
	if err := a.requester.Request(ctx, http.MethodGet, "/api/admin/me", nil, &raw); err != nil {
		return User{}, err
	}
	account, err := decodeAdmin(raw)
	if err != nil {
		return User{}, &core.Failure{Kind: core.KindDecode, Message: "admin", Err: err}
	}
	return account, nil
}

// Logout ends the password account session. The local token is cleared even
// if the api fails.
func (a *Admin) Logout(ctx context.Context) error {
	token := a.adminToken()
	if token == "" {
		return nil
	}
	a.mutex.Lock()
	a.token = ""
	a.mutex.Unlock()
	return a.anonymous.WithToken(token).Request(ctx, http.MethodPost, "/api/admin/logout", nil, nil)
}

// SignedIn returns true while a password account is signed in
func (a *Admin) SignedIn() bool {
	return a.adminToken() != ""
}

func (a *Admin) adminToken() string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.token
}
