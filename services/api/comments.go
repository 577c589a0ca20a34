// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/fashionera/core/access"
)

type commentBody struct {
	Text string `json:"text"`
}

func (b *Backend) handleComments() {
	b.router.HandleFunc("/comments/{postId}", b.listComments).Methods(http.MethodGet)
	b.router.HandleFunc("/comments/{postId}", access.Require(b.createComment)).Methods(http.MethodPost)
	b.router.HandleFunc("/comments/{id}", access.Require(b.deleteComment)).Methods(http.MethodDelete)
	b.router.HandleFunc("/api/comments", access.Require(b.listAllComments, RoleAdmin)).Methods(http.MethodGet)
}

func (b *Backend) listComments(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["postId"]
	b.mutex.RLock()
	comments := []comment{}
	for _, c := range b.comments {
		if c.PostID == postID {
			comments = append(comments, *c)
		}
	}
	b.mutex.RUnlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "comments": comments})
}

func (b *Backend) createComment(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["postId"]
	var body commentBody
	if !b.decodeBody(w, r, "comment", &body) {
		return
	}
	auth := access.AuthorizationFromContext(r.Context())

	b.mutex.Lock()
	exists := false
	for _, p := range b.posts {
		exists = exists || p.ID == postID
	}
	if !exists {
		b.mutex.Unlock()
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	c := &comment{
		ID:        b.nextID("c"),
		PostID:    postID,
		User:      author{ID: auth.UserID, Username: auth.Name, Email: auth.Email},
		Text:      body.Text,
		CreatedAt: time.Now().UTC(),
	}
	b.comments = append(b.comments, c)
	created := *c
	b.mutex.Unlock()

	writeJSON(w, http.StatusCreated, created)
}

func (b *Backend) deleteComment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	auth := access.AuthorizationFromContext(r.Context())

	b.mutex.Lock()
	index := -1
	for i, c := range b.comments {
		if c.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		b.mutex.Unlock()
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}
	if !mayChange(auth, b.comments[index].User.ID) {
		b.mutex.Unlock()
		writeError(w, http.StatusForbidden, "you can only delete your own comment")
		return
	}
	b.comments = append(b.comments[:index:index], b.comments[index+1:]...)
	b.mutex.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "comment has been deleted"})
}

// listAllComments is the moderation view. It speaks the flat dialect with
// email and comment fields.
func (b *Backend) listAllComments(w http.ResponseWriter, r *http.Request) {
	type flatComment struct {
		ID        string    `json:"_id"`
		PostID    string    `json:"postId"`
		UserID    string    `json:"userId"`
		Email     string    `json:"email"`
		Comment   string    `json:"comment"`
		CreatedAt time.Time `json:"createdAt"`
	}
	b.mutex.RLock()
	comments := make([]flatComment, 0, len(b.comments))
	for _, c := range b.comments {
		comments = append(comments, flatComment{
			ID:        c.ID,
			PostID:    c.PostID,
			UserID:    c.User.ID,
			Email:     c.User.Email,
			Comment:   c.Text,
			CreatedAt: c.CreatedAt,
		})
	}
	b.mutex.RUnlock()
	writeJSON(w, http.StatusOK, comments)
}
