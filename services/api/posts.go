// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/fashionera/core/access"
	"github.com/relabs-tech/fashionera/core/logger"
)

// older clients send short category names
var categoryAliases = map[string]string{
	"spot":      "spotlight",
	"tread":     "trend",
	"tailoring": "tailor",
}

func canonicalCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if canonical, ok := categoryAliases[category]; ok {
		return canonical
	}
	return category
}

type postBody struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Desc     string `json:"desc"`
	Content  string `json:"content"`
	Img      string `json:"img"`
}

// postBySlug must be called with the mutex held
func (b *Backend) postBySlug(slug string) *post {
	for _, p := range b.posts {
		if p.Slug == slug {
			return p
		}
	}
	return nil
}

// uniqueSlug must be called with the mutex held
func (b *Backend) uniqueSlug(title string) string {
	base := slugify(title)
	slug := base
	for i := 2; b.postBySlug(slug) != nil; i++ {
		slug = base + "-" + strconv.Itoa(i)
	}
	return slug
}

func (b *Backend) handlePosts() {
	logger.Default().Debugln("api: posts")

	b.router.Handle("/posts", handlers.CompressHandler(http.HandlerFunc(b.listPosts))).Methods(http.MethodGet)
	b.router.HandleFunc("/posts", access.Require(b.createPost)).Methods(http.MethodPost)
	b.router.HandleFunc("/posts/{slug}", b.readPost).Methods(http.MethodGet)
	b.router.HandleFunc("/posts/{slug}", access.Require(b.updatePost)).Methods(http.MethodPut)
	b.router.HandleFunc("/posts/{id}", access.Require(b.deletePost)).Methods(http.MethodDelete)
}

func (b *Backend) listPosts(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = l
	}
	category := r.URL.Query().Get("cat")
	if category != "" {
		category = canonicalCategory(category)
	}

	b.mutex.RLock()
	posts := make([]post, 0, len(b.posts))
	for _, p := range b.posts {
		if len(posts) == limit {
			break
		}
		if category == "" || p.Category == category {
			posts = append(posts, *p)
		}
	}
	b.mutex.RUnlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "posts": posts})
}

func (b *Backend) readPost(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	b.mutex.RLock()
	p := b.postBySlug(slug)
	var found post
	if p != nil {
		found = *p
	}
	b.mutex.RUnlock()
	if p == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (b *Backend) createPost(w http.ResponseWriter, r *http.Request) {
	var body postBody
	if !b.decodeBody(w, r, "post", &body) {
		return
	}
	auth := access.AuthorizationFromContext(r.Context())
	now := time.Now().UTC()

	b.mutex.Lock()
	p := &post{
		ID:        b.nextID("p"),
		Slug:      b.uniqueSlug(body.Title),
		Title:     strings.TrimSpace(body.Title),
		Desc:      body.Desc,
		Content:   body.Content,
		Category:  canonicalCategory(body.Category),
		Img:       body.Img,
		User:      author{ID: auth.UserID, Username: auth.Name},
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.posts = append([]*post{p}, b.posts...)
	created := *p
	b.mutex.Unlock()

	logger.FromContext(r.Context()).Infof("created post %s", created.Slug)
	writeJSON(w, http.StatusCreated, created)
}

func (b *Backend) updatePost(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	var body postBody
	if !b.decodeBody(w, r, "post", &body) {
		return
	}
	auth := access.AuthorizationFromContext(r.Context())

	b.mutex.Lock()
	p := b.postBySlug(slug)
	if p == nil {
		b.mutex.Unlock()
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	if !mayChange(auth, p.User.ID) {
		b.mutex.Unlock()
		writeError(w, http.StatusForbidden, "you can only update your own post")
		return
	}
	p.Title = strings.TrimSpace(body.Title)
	p.Desc = body.Desc
	p.Content = body.Content
	p.Category = canonicalCategory(body.Category)
	if body.Img != "" {
		p.Img = body.Img
	}
	p.UpdatedAt = time.Now().UTC()
	updated := *p
	b.mutex.Unlock()

	writeJSON(w, http.StatusOK, updated)
}

func (b *Backend) deletePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	auth := access.AuthorizationFromContext(r.Context())

	b.mutex.Lock()
	index := -1
	for i, p := range b.posts {
		if p.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		b.mutex.Unlock()
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	if !mayChange(auth, b.posts[index].User.ID) {
		b.mutex.Unlock()
		writeError(w, http.StatusForbidden, "you can only delete your own post")
		return
	}
	b.posts = append(b.posts[:index:index], b.posts[index+1:]...)
	comments := make([]*comment, 0, len(b.comments))
	for _, c := range b.comments {
		if c.PostID != id {
			comments = append(comments, c)
		}
	}
	b.comments = comments
	b.mutex.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "post has been deleted"})
}
