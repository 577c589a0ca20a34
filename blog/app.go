// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package blog is the fashionera client: posts, comment threads, the topic forum,
the admin dashboard and the newsletter, kept in sync with the fashionera api.

Everything hangs off one App, built once at startup with New and passed to
whoever needs it:

	app, err := blog.New(ctx, blog.Builder{Config: config, Prompter: prompter})
	...
	principal, err := app.SignIn(ctx)
	err = app.Refresh(ctx)
	posts := app.Posts.Search("fabric")

All collections are confirm-then-apply mirrors, see package store. Failures are
returned to the caller and, as notices, passed to the Builder's Notifier.
*/
package blog

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/fashionera/core"
	"github.com/relabs-tech/fashionera/core/access"
	"github.com/relabs-tech/fashionera/core/client"
	"github.com/relabs-tech/fashionera/core/logger"
	"github.com/relabs-tech/fashionera/core/media"
)

// Builder is a builder helper for the App
type Builder struct {
	// Config is the configuration. APIURL is mandatory unless Client is set.
	Config Config
	// Client overrides the api client, for example a router client in tests
	Client *client.Client
	// Provider is the identity provider. Default is Google, which requires Prompter.
	Provider access.Provider
	// Prompter shows Google's consent page
	Prompter access.Prompter
	// Notifier receives a notice for every failed operation. Default logs them.
	Notifier core.Notifier
	// Media overrides the media driver from the configuration
	Media media.Driver
}

// App is the application wide context object
type App struct {
	Config     Config
	Session    *access.Session
	Accounts   *Accounts
	Posts      *Posts
	Comments   *Comments
	Topics     *Topics
	Admin      *Admin
	Newsletter *Newsletter

	client client.Client
}

// sessionRequester sends the current session token with every request
type sessionRequester struct {
	client  client.Client
	session *access.Session
}

func (s *sessionRequester) Request(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	c := s.client
	if s.session != nil {
		c = c.WithToken(s.session.Token())
	}
	return c.Request(ctx, method, path, body, result)
}

// logNotifier logs notices, it is the default notifier
func logNotifier(ctx context.Context) core.Notifier {
	rlog := logger.FromContext(ctx)
	return core.NotifierFunc(func(resource string, operation core.Operation, err error) {
		rlog.WithError(err).Warnf("%s %s failed", operation, resource)
	})
}

// New creates the App
func New(ctx context.Context, b Builder) (*App, error) {
	var c client.Client
	if b.Client != nil {
		c = *b.Client
	} else {
		if b.Config.APIURL == "" {
			return nil, core.NewFailure(core.KindValidation, "FASHIONERA_API_URL is not configured")
		}
		c = client.NewWithURL(b.Config.APIURL)
	}

	provider := b.Provider
	if provider == nil {
		if b.Prompter == nil {
			return nil, core.NewFailure(core.KindValidation, "either an identity provider or a prompter is required")
		}
		provider = access.NewGoogleProvider(access.GoogleBuilder{
			ClientID:     b.Config.GoogleClientID,
			ClientSecret: b.Config.GoogleClientSecret,
			RedirectURL:  b.Config.GoogleRedirectURL,
			Prompter:     b.Prompter,
		})
	}

	driver := b.Media
	if driver == nil {
		var err error
		driver, err = media.New(ctx, b.Config.MediaConfiguration())
		if err != nil {
			return nil, err
		}
	}

	notifier := b.Notifier
	if notifier == nil {
		notifier = logNotifier(ctx)
	}

	authorized := &sessionRequester{client: c}
	accounts := &Accounts{anonymous: c, requester: authorized}
	session := access.NewSession(access.SessionBuilder{Provider: provider, Registrar: accounts})
	authorized.session = session

	return &App{
		Config:     b.Config,
		Session:    session,
		Accounts:   accounts,
		Posts:      newPosts(authorized, notifier, driver),
		Comments:   newComments(authorized, notifier),
		Topics:     newTopics(authorized, notifier),
		Admin:      newAdmin(c, authorized, notifier),
		Newsletter: &Newsletter{requester: authorized, notifier: notifier},
		client:     c,
	}, nil
}

// Client returns an api client carrying the current session token
func (a *App) Client() client.Client {
	return a.client.WithToken(a.Session.Token())
}

// Refresh loads posts and topics concurrently. It returns the first error;
// a failure of one does not keep the other from loading.
func (a *App) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return a.Posts.Load(ctx) })
	g.Go(func() error { return a.Topics.Load(ctx) })
	return g.Wait()
}

// SignIn signs in with the identity provider. Registration with the api
// happens in the background, see access.Session.
func (a *App) SignIn(ctx context.Context) (access.Principal, error) {
	return a.Session.SignIn(ctx)
}

// SignOut ends the api sessions, the administrator's included, and signs out
// of the identity provider. The local session is cleared even if either fails.
func (a *App) SignOut(ctx context.Context) {
	if err := a.Admin.Logout(ctx); err != nil {
		logger.FromContext(ctx).WithError(err).Warnln("api admin logout failed")
	}
	if a.Session.Token() != "" {
		if err := a.Accounts.Logout(ctx); err != nil {
			logger.FromContext(ctx).WithError(err).Warnln("api logout failed")
		}
	}
	a.Session.SignOut(ctx)
}
