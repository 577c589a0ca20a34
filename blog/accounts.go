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

	"github.com/goccy/go-json"

	"github.com/relabs-tech/fashionera/core"
	"github.com/relabs-tech/fashionera/core/access"
	"github.com/relabs-tech/fashionera/core/store"
)

// Accounts talks to the api's account endpoints. It is the Registrar of the
// session: after sign-in, the principal is registered (or updated) and the
// returned token becomes the bearer token of all further requests.
type Accounts struct {
	// anonymous sends no token
	anonymous store.Requester
	// requester sends the session token
	requester store.Requester
}

// Register implements access.Registrar
func (a *Accounts) Register(ctx context.Context, principal access.Principal) (string, error) {
	body := struct {
		GoogleID string `json:"googleId"`
		Email    string `json:"email"`
		Username string `json:"username"`
	}{GoogleID: principal.ID, Email: principal.Email, Username: principal.DisplayName}

	var response struct {
		User  json.RawMessage `json:"user"`
		Token string          `json:"token"`
	}
	if err := a.anonymous.Request(ctx, http.MethodPost, "/api/auth/google-login", body, &response); err != nil {
		return "", err
	}
	if response.Token == "" {
		return "", &core.Failure{Kind: core.KindDecode, Message: "google-login", Err: errors.New("no token in response")}
	}
	return response.Token, nil
}

// Profile fetches the signed in user as the api knows it
func (a *Accounts) Profile(ctx context.Context) (User, error) {
	var raw []byte
	if err := a.requester.Request(ctx, http.MethodGet, "/auth/profile", nil, &raw); err != nil {
		return User{}, err
	}
	user, err := decodeUser(raw)
	if err != nil {
		return User{}, &core.Failure{Kind: core.KindDecode, Message: "profile", Err: err}
	}
	return user, nil
}

// Logout ends the api session
func (a *Accounts) Logout(ctx context.Context) error {
	return a.requester.Request(ctx, http.MethodGet, "/auth/logout", nil, nil)
}
