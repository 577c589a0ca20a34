// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package blog

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/relabs-tech/fashionera/core"
	"github.com/relabs-tech/fashionera/core/logger"
	"github.com/relabs-tech/fashionera/core/media"
	"github.com/relabs-tech/fashionera/core/search"
	"github.com/relabs-tech/fashionera/core/store"
)

// Posts is the mirror of all blog posts. Posts are looked up and edited by
// slug, but deleted by id.
type Posts struct {
	*store.Store[Post, PostDraft]
	requester store.Requester
	media     media.Driver
}

func newPosts(requester store.Requester, notifier core.Notifier, driver media.Driver) *Posts {
	remote := &store.REST[Post, PostDraft]{
		Requester:  requester,
		ListPath:   "/posts?limit=100",
		CreatePath: "/posts",
		ItemPath:   func(id string) string { return "/posts/" + url.PathEscape(id) },
		Encode:     encodePost,
		DecodeList: decodePosts,
		DecodeOne:  decodePost,
	}
	return &Posts{
		Store: store.New(store.Builder[Post, PostDraft]{
			Resource:  "post",
			Remote:    remote,
			Validate:  PostDraft.Validate,
			Placement: store.Prepend,
			Notifier:  notifier,
		}),
		requester: requester,
		media:     driver,
	}
}

// BySlug fetches a single post. The mirror is not touched.
func (p *Posts) BySlug(ctx context.Context, slug string) (Post, error) {
	var raw []byte
	if err := p.requester.Request(ctx, http.MethodGet, "/posts/"+url.PathEscape(slug), nil, &raw); err != nil {
		return Post{}, err
	}
	post, err := decodePost(raw)
	if err != nil {
		return Post{}, &core.Failure{Kind: core.KindDecode, Message: "post " + slug, Err: err}
	}
	return post, nil
}

// Edit updates the post with the given slug. The mirrored post is matched by
// the id the server returns.
func (p *Posts) Edit(ctx context.Context, slug string, draft PostDraft) (Post, error) {
	return p.Store.Update(ctx, slug, draft)
}

// Search returns the mirrored posts whose title or description contains keyword
func (p *Posts) Search(keyword string) []Post {
	return search.Filter(p.Items(), keyword,
		func(post Post) string { return post.Title },
		func(post Post) string { return post.Description },
	)
}

// InCategory returns the mirrored posts of one category
func (p *Posts) InCategory(category Category) []Post {
	return search.Where(p.Items(), func(post Post) bool { return post.Category == category })
}

// Cover is a cover image to upload along with a post
type Cover struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadCover stores a cover image and returns the path to put into
// PostDraft.CoverImagePath
func (p *Posts) UploadCover(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	_, location, err := p.uploadCover(ctx, Cover{Filename: filename, ContentType: contentType, Data: data})
	return location, err
}

// Publish creates a post with cover as its cover image. The uploaded cover is
// deleted again if the post cannot be created. A nil cover publishes the draft
// as it is.
func (p *Posts) Publish(ctx context.Context, draft PostDraft, cover *Cover) (Post, error) {
	if cover == nil {
		return p.Create(ctx, draft)
	}
	if err := draft.Validate(); err != nil {
		return Post{}, err
	}
	key, location, err := p.uploadCover(ctx, *cover)
	if err != nil {
		return Post{}, err
	}
	draft.CoverImagePath = location
	post, err := p.Create(ctx, draft)
	if err != nil {
		if derr := p.media.Delete(ctx, key); derr != nil {
			logger.FromContext(ctx).WithError(derr).Warnf("cannot delete orphaned cover %s", key)
		}
		return Post{}, err
	}
	return post, nil
}

func (p *Posts) uploadCover(ctx context.Context, cover Cover) (key, location string, err error) {
	if p.media == nil {
		return "", "", core.NewFailure(core.KindValidation, "no media storage configured")
	}
	name := path.Base(strings.ReplaceAll(cover.Filename, "\\", "/"))
	if name == "." || name == "/" {
		name = "cover"
	}
	key = "covers/" + uuid.New().String() + "-" + name
	location, err = p.media.Upload(ctx, key, cover.ContentType, cover.Data)
	if err != nil {
		return "", "", &core.Failure{Kind: core.KindTransport, Message: "cover upload", Err: err}
	}
	return key, location, nil
}
