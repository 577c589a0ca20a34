// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Command fashionera is a terminal client for the fashionera api
//
//	fashionera posts [-cat trend] [-q fabric]
//	fashionera post <slug>
//	fashionera topics [-q fabric]
//	fashionera comment <topic-id> <text>
//	fashionera write -title ... -cat ... -desc ... -body ... [-cover file.png]
//	fashionera subscribe <email>
//	fashionera stats
//	fashionera register-admin -name ... -email ...
//
// Configuration is read from the environment, see blog.Config. stats signs in
// with the administrator password account if FASHIONERA_ADMIN_EMAIL is set,
// register-admin takes the password from FASHIONERA_ADMIN_PASSWORD.
package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/fashionera/blog"
	"github.com/relabs-tech/fashionera/core/logger"
	"github.com/relabs-tech/fashionera/core/search"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: fashionera posts|post|topics|comment|write|subscribe|stats|register-admin [arguments]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	config, err := blog.ConfigFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.InitLogger(logger.ParseLevel(config.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, rlog := logger.ContextWithLogger(ctx)

	app, err := blog.New(ctx, blog.Builder{Config: config, Prompter: &terminalPrompter{in: os.Stdin, out: os.Stderr}})
	if err != nil {
		rlog.WithError(err).Fatalln("cannot start")
	}

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "posts":
		err = listPosts(ctx, app, args)
	case "post":
		err = showPost(ctx, app, args)
	case "topics":
		err = listTopics(ctx, app, args)
	case "comment":
		err = comment(ctx, app, args)
	case "write":
		err = write(ctx, app, args)
	case "subscribe":
		err = subscribe(ctx, app, args)
	case "stats":
		err = stats(ctx, app)
	case "register-admin":
		err = registerAdmin(ctx, app, args)
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signIn signs in and waits for the api session
func signIn(ctx context.Context, app *blog.App) error {
	principal, err := app.SignIn(ctx)
	if err != nil {
		return err
	}
	app.Session.Wait()
	select {
	case err := <-app.Session.Errors():
		return fmt.Errorf("signed in as %s, but the api did not accept it: %w", principal.Email, err)
	default:
	}
	logger.FromContext(ctx).WithFields(logrus.Fields{"email": principal.Email}).Debugln("session ready")
	return nil
}

func listPosts(ctx context.Context, app *blog.App, args []string) error {
	flags := flag.NewFlagSet("posts", flag.ExitOnError)
	category := flags.String("cat", "", "only posts of this category")
	keyword := flags.String("q", "", "only posts whose title or description contain this")
	flags.Parse(args)

	if err := app.Posts.Load(ctx); err != nil {
		return err
	}
	posts := app.Posts.Search(*keyword)
	if *category != "" {
		c, err := blog.ParseCategory(*category)
		if err != nil {
			return err
		}
		posts = search.Where(posts, func(p blog.Post) bool { return p.Category == c })
	}
	for _, p := range posts {
		fmt.Printf("%-40s %-11s %s\n", p.Slug, p.Category, p.Title)
	}
	return nil
}

func showPost(ctx context.Context, app *blog.App, args []string) error {
	if len(args) != 1 {
		usage()
	}
	post, err := app.Posts.BySlug(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s\n%s | %s\n\n%s\n\n%s\n", post.Title, post.Category, post.CreatedAt.Format("2006-01-02"), post.Description, post.BodyHTML)

	thread := app.Comments.Thread(post.ID)
	if err := thread.Load(ctx); err != nil {
		return err
	}
	for _, c := range thread.Items() {
		fmt.Printf("  %s: %s\n", c.AuthorName, c.Text)
	}
	return nil
}

func listTopics(ctx context.Context, app *blog.App, args []string) error {
	flags := flag.NewFlagSet("topics", flag.ExitOnError)
	keyword := flags.String("q", "", "only topics whose title or description contain this")
	flags.Parse(args)

	if err := app.Topics.Load(ctx); err != nil {
		return err
	}
	for _, t := range app.Topics.Search(*keyword) {
		fmt.Printf("%s  %s (%d comments)\n", t.ID, t.Title, len(t.Comments))
	}
	return nil
}

func comment(ctx context.Context, app *blog.App, args []string) error {
	if len(args) < 2 {
		usage()
	}
	if err := signIn(ctx, app); err != nil {
		return err
	}
	if err := app.Topics.Load(ctx); err != nil {
		return err
	}
	c, err := app.Topics.AddComment(ctx, args[0], blog.CommentDraft{Text: strings.Join(args[1:], " ")})
	if err != nil {
		return err
	}
	fmt.Println("commented", c.ID)
	return nil
}

func write(ctx context.Context, app *blog.App, args []string) error {
	flags := flag.NewFlagSet("write", flag.ExitOnError)
	title := flags.String("title", "", "the title")
	category := flags.String("cat", "", "one of general, technology, spotlight, tailor, trend, story")
	description := flags.String("desc", "", "the description")
	body := flags.String("body", "", "the body, in HTML")
	cover := flags.String("cover", "", "a cover image file")
	flags.Parse(args)

	draft := blog.PostDraft{Title: *title, Category: *category, Description: *description, BodyHTML: *body}
	if err := draft.Validate(); err != nil {
		return err
	}
	if err := signIn(ctx, app); err != nil {
		return err
	}
	var image *blog.Cover
	if *cover != "" {
		data, err := os.ReadFile(*cover)
		if err != nil {
			return err
		}
		image = &blog.Cover{Filename: filepath.Base(*cover), ContentType: mime.TypeByExtension(filepath.Ext(*cover)), Data: data}
	}
	post, err := app.Posts.Publish(ctx, draft, image)
	if err != nil {
		return err
	}
	fmt.Println("published", post.Slug)
	return nil
}

func subscribe(ctx context.Context, app *blog.App, args []string) error {
	if len(args) != 1 {
		usage()
	}
	message, err := app.Newsletter.Subscribe(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(message)
	return nil
}

func stats(ctx context.Context, app *blog.App) error {
	if app.Config.AdminEmail != "" {
		if _, err := app.Admin.Login(ctx, app.Config.AdminEmail, app.Config.AdminPassword); err != nil {
			return err
		}
		defer app.Admin.Logout(ctx)
	} else if err := signIn(ctx, app); err != nil {
		return err
	}
	s, err := app.Admin.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("posts: %d\nusers: %d\ncomments: %d\n", s.Posts, s.Users, s.Comments)
	return nil
}

func registerAdmin(ctx context.Context, app *blog.App, args []string) error {
	flags := flag.NewFlagSet("register-admin", flag.ExitOnError)
	name := flags.String("name", "", "the administrator's name")
	email := flags.String("email", app.Config.AdminEmail, "the administrator's email")
	flags.Parse(args)

	message, err := app.Admin.Register(ctx, blog.AdminDraft{Name: *name, Email: *email, Password: app.Config.AdminPassword})
	if err != nil {
		return err
	}
	fmt.Println(message)
	return nil
}
