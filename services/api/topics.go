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

	"github.com/gorilla/mux"

	"github.com/relabs-tech/fashionera/core/access"
)

type topicBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// copy returns a deep copy, safe to marshal without the mutex
func (t *topic) copy() topic {
	c := *t
	c.Comments = make([]*topicComment, 0, len(t.Comments))
	for _, tc := range t.Comments {
		cc := *tc
		c.Comments = append(c.Comments, &cc)
	}
	return c
}

// topicByID must be called with the mutex held
func (b *Backend) topicByID(id string) (int, *topic) {
	for i, t := range b.topics {
		if t.ID == id {
			return i, t
		}
	}
	return -1, nil
}

func (b *Backend) handleTopics() {
	b.router.HandleFunc("/api/topics", b.listTopics).Methods(http.MethodGet)
	b.router.HandleFunc("/api/topics", access.Require(b.createTopic)).Methods(http.MethodPost)
	b.router.HandleFunc("/api/topics/{id}", access.Require(b.deleteTopic, RoleAdmin)).Methods(http.MethodDelete)
	b.router.HandleFunc("/api/topics/{id}/comments", access.Require(b.createTopicComment)).Methods(http.MethodPost)
	b.router.HandleFunc("/api/topics/{id}/comments/{commentId}", access.Require(b.deleteTopicComment)).Methods(http.MethodDelete)
}

func (b *Backend) listTopics(w http.ResponseWriter, r *http.Request) {
	b.mutex.RLock()
	topics := make([]topic, 0, len(b.topics))
	for _, t := range b.topics {
		topics = append(topics, t.copy())
	}
	b.mutex.RUnlock()
	writeJSON(w, http.StatusOK, topics)
}

func (b *Backend) createTopic(w http.ResponseWriter, r *http.Request) {
	var body topicBody
	if !b.decodeBody(w, r, "topic", &body) {
		return
	}
	b.mutex.Lock()
	t := &topic{
		ID:          b.nextID("t"),
		Title:       strings.TrimSpace(body.Title),
		Description: body.Description,
		Image:       body.Image,
		Comments:    []*topicComment{},
		CreatedAt:   time.Now().UTC(),
	}
	b.topics = append([]*topic{t}, b.topics...)
	created := t.copy()
	b.mutex.Unlock()

	writeJSON(w, http.StatusCreated, created)
}

func (b *Backend) deleteTopic(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b.mutex.Lock()
	i, t := b.topicByID(id)
	if t == nil {
		b.mutex.Unlock()
		writeError(w, http.StatusNotFound, "topic not found")
		return
	}
	b.topics = append(b.topics[:i:i], b.topics[i+1:]...)
	b.mutex.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "topic has been deleted"})
}

func (b *Backend) createTopicComment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body commentBody
	if !b.decodeBody(w, r, "comment", &body) {
		return
	}
	auth := access.AuthorizationFromContext(r.Context())

	b.mutex.Lock()
	_, t := b.topicByID(id)
	if t == nil {
		b.mutex.Unlock()
		writeError(w, http.StatusNotFound, "topic not found")
		return
	}
	c := &topicComment{
		ID:        b.nextID("tc"),
		TopicID:   t.ID,
		UserID:    auth.UserID,
		Username:  auth.Name,
		Text:      body.Text,
		CreatedAt: time.Now().UTC(),
	}
	t.Comments = append(t.Comments, c)
	created := *c
	b.mutex.Unlock()

	writeJSON(w, http.StatusCreated, created)
}

func (b *Backend) deleteTopicComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	auth := access.AuthorizationFromContext(r.Context())

	b.mutex.Lock()
	_, t := b.topicByID(vars["id"])
	if t == nil {
		b.mutex.Unlock()
		writeError(w, http.StatusNotFound, "topic not found")
		return
	}
	index := -1
	for i, c := range t.Comments {
		if c.ID == vars["commentId"] {
			index = i
			break
		}
	}
	if index < 0 {
		b.mutex.Unlock()
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}
	if !mayChange(auth, t.Comments[index].UserID) {
		b.mutex.Unlock()
		writeError(w, http.StatusForbidden, "you can only delete your own comment")
		return
	}
	t.Comments = append(t.Comments[:index:index], t.Comments[index+1:]...)
	b.mutex.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "comment has been deleted"})
}
