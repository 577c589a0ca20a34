// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package blog

import (
	"context"
	"net/http"
	"strings"

	"github.com/relabs-tech/fashionera/core"
	"github.com/relabs-tech/fashionera/core/store"
)

// Newsletter subscribes email addresses
type Newsletter struct {
	requester store.Requester
	notifier  core.Notifier
}

// Subscribe subscribes email to the newsletter and returns the server's
// confirmation message. Addresses without "@" and "." are rejected locally.
func (n *Newsletter) Subscribe(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		err := core.NewFailure(core.KindValidation, "please enter a valid email address")
		n.notify(err)
		return "", err
	}
	var response struct {
		Message string `json:"message"`
	}
	body := struct {
		Email string `json:"email"`
	}{Email: email}
	if err := n.requester.Request(ctx, http.MethodPost, "/newsletter/subscribe", body, &response); err != nil {
		n.notify(err)
		return "", err
	}
	return response.Message, nil
}

func (n *Newsletter) notify(err error) {
	if n.notifier != nil {
		n.notifier.Notify("subscription", core.OperationCreate, err)
	}
}
