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
)

func (b *Backend) handleNewsletter() {
	b.router.HandleFunc("/newsletter/subscribe", b.subscribe).Methods(http.MethodPost)
}

func (b *Backend) subscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !b.decodeBody(w, r, "newsletter", &body) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))

	b.mutex.Lock()
	_, known := b.subscribers[email]
	if !known {
		b.subscribers[email] = time.Now().UTC()
	}
	b.mutex.Unlock()

	if known {
		writeError(w, http.StatusBadRequest, "This email is already subscribed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "message": "Subscribed successfully!"})
}

// Subscribers returns the number of newsletter subscribers
func (b *Backend) Subscribers() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.subscribers)
}
