// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package access

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/relabs-tech/fashionera/core/logger"
)

// Google defaults
const (
	GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	GoogleRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

// Prompter presents the consent page to the user, the equivalent of the
// sign-in popup. It returns the authorization code and state the provider
// redirected back with, or ErrDismissed if the user closed the page.
type Prompter interface {
	Prompt(ctx context.Context, consentURL string) (code, state string, err error)
}

// PrompterFunc adapts a function to a Prompter
type PrompterFunc func(ctx context.Context, consentURL string) (code, state string, err error)

// Prompt implements Prompter
func (f PrompterFunc) Prompt(ctx context.Context, consentURL string) (string, string, error) {
	return f(ctx, consentURL)
}

// GoogleBuilder is a builder helper for the GoogleProvider
type GoogleBuilder struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Prompter shows the consent page. This is mandatory.
	Prompter Prompter
	// Scopes default to openid, email and profile
	Scopes []string
	// Endpoint defaults to google.Endpoint
	Endpoint *oauth2.Endpoint
	// UserInfoURL defaults to GoogleUserInfoURL
	UserInfoURL string
	// RevokeURL defaults to GoogleRevokeURL
	RevokeURL string
	// HTTPClient is used for token exchange, userinfo and revocation. Default is http.DefaultClient.
	HTTPClient *http.Client
}

// GoogleProvider signs in with Google's authorization code flow
type GoogleProvider struct {
	config      *oauth2.Config
	prompter    Prompter
	userInfoURL string
	revokeURL   string
	httpClient  *http.Client

	mutex   sync.Mutex
	current *Principal
	token   *oauth2.Token
}

// NewGoogleProvider creates a new google identity provider
func NewGoogleProvider(b GoogleBuilder) *GoogleProvider {
	if b.Prompter == nil {
		panic("Prompter is missing")
	}
	endpoint := google.Endpoint
	if b.Endpoint != nil {
		endpoint = *b.Endpoint
	}
	scopes := b.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	p := &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     b.ClientID,
			ClientSecret: b.ClientSecret,
			RedirectURL:  b.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		prompter:    b.Prompter,
		userInfoURL: b.UserInfoURL,
		revokeURL:   b.RevokeURL,
		httpClient:  b.HTTPClient,
	}
	if p.userInfoURL == "" {
		p.userInfoURL = GoogleUserInfoURL
	}
	if p.revokeURL == "" {
		p.revokeURL = GoogleRevokeURL
	}
	if p.httpClient == nil {
		p.httpClient = http.DefaultClient
	}
	return p
}

// SignIn implements Provider
func (p *GoogleProvider) SignIn(ctx context.Context) (Principal, error) {
	rlog := logger.FromContext(ctx)
	state := uuid.New().String()
	consentURL := p.config.AuthCodeURL(state, oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("prompt", "select_account"))

	code, returnedState, err := p.prompter.Prompt(ctx, consentURL)
	if err != nil {
		return Principal{}, err
	}
	if code == "" {
		return Principal{}, ErrDismissed
	}
	if returnedState != state {
		return Principal{}, errors.New("invalid oauth2 state parameter")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return Principal{}, fmt.Errorf("token exchange failed: %w", err)
	}

	principal, err := principalFromIDToken(token)
	if err != nil {
		rlog.WithError(err).Debugln("no usable id_token, asking userinfo")
		principal, err = p.fetchUserInfo(ctx, token)
		if err != nil {
			return Principal{}, err
		}
	}

	p.mutex.Lock()
	p.current = &principal
	p.token = token
	p.mutex.Unlock()
	return principal, nil
}

// SignOut implements Provider. The access token is revoked at Google; the
// local state is cleared in any case.
func (p *GoogleProvider) SignOut(ctx context.Context) error {
	p.mutex.Lock()
	token := p.token
	p.current = nil
	p.token = nil
	p.mutex.Unlock()

	if token == nil || token.AccessToken == "" {
		return nil
	}
	form := url.Values{"token": {token.AccessToken}}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err := p.httpClient.Do(r)
	if err != nil {
		return fmt.Errorf("revoke request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("revoke returned %d: %s", res.StatusCode, string(body))
	}
	return nil
}

// Current implements Provider
func (p *GoogleProvider) Current() *Principal {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.current == nil {
		return nil
	}
	principal := *p.current
	return &principal
}

type googleClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// principalFromIDToken reads the principal from the id_token. The token comes
// straight from the token endpoint over TLS, so its signature is not checked.
func principalFromIDToken(token *oauth2.Token) (Principal, error) {
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return Principal{}, errors.New("no id_token")
	}
	claims := googleClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return Principal{}, err
	}
	if claims.Subject == "" || claims.Email == "" {
		return Principal{}, errors.New("id_token lacks subject or email")
	}
	return Principal{ID: claims.Subject, DisplayName: claims.Name, Email: claims.Email}, nil
}

func (p *GoogleProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (Principal, error) {
	res, err := p.config.Client(ctx, token).Get(p.userInfoURL)
	if err != nil {
		return Principal{}, fmt.Errorf("userinfo request: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Principal{}, fmt.Errorf("userinfo request: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return Principal{}, fmt.Errorf("userinfo returned %d: %s", res.StatusCode, string(body))
	}
	var info struct {
		ID    string `json:"id"`
		Sub   string `json:"sub"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return Principal{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.ID == "" {
		info.ID = info.Sub
	}
	if info.ID == "" || info.Email == "" {
		return Principal{}, errors.New("userinfo lacks id or email")
	}
	return Principal{ID: info.ID, DisplayName: info.Name, Email: info.Email}, nil
}
