// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package access provides sign-in on the client and access control on the server

On the client side a Session observes an external identity Provider (Google) and
exposes the signed in Principal. After sign-in, the principal is optionally
registered with the backend by a Registrar, which mints the session token used
as bearer token for all authenticated writes.

On the server side, NewJwtMiddleware resolves those session tokens to an
Authorization in the request context.
*/
package access

import (
	"context"
	"errors"
)

// Principal is the authenticated user as reported by the identity provider
type Principal struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Provider is an external identity provider
type Provider interface {
	// SignIn runs the interactive sign-in flow. A dismissed flow returns ErrDismissed.
	SignIn(ctx context.Context) (Principal, error)
	// SignOut ends the provider session
	SignOut(ctx context.Context) error
	// Current returns the principal the provider considers signed in, or nil
	Current() *Principal
}

// Registrar registers a freshly signed in principal with the backend and
// returns the backend's session token
type Registrar interface {
	Register(ctx context.Context, principal Principal) (token string, err error)
}

// RegistrarFunc adapts a function to a Registrar
type RegistrarFunc func(ctx context.Context, principal Principal) (string, error)

// Register implements Registrar
func (f RegistrarFunc) Register(ctx context.Context, principal Principal) (string, error) {
	return f(ctx, principal)
}

// ErrDismissed is returned by providers and prompters when the user closed the
// sign-in flow without completing it
var ErrDismissed = errors.New("sign-in dismissed")

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

// the predefined context keys
const contextKeyAuthorization contextKey = "_authorization_"
