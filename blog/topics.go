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

	"github.com/goccy/go-json"

	"github.com/relabs-tech/fashionera/core"
	"github.com/relabs-tech/fashionera/core/search"
	"github.com/relabs-tech/fashionera/core/store"
)

// Topics is the mirror of the forum. Comments are embedded in their topic.
type Topics struct {
	*store.Store[Topic, TopicDraft]
	requester store.Requester
	notifier  core.Notifier
}

func newTopics(requester store.Requester, notifier core.Notifier) *Topics {
	return &Topics{
		Store: store.New(store.Builder[Topic, TopicDraft]{
			Resource: "topic",
			Remote: &store.REST[Topic, TopicDraft]{
				Requester:  requester,
				ListPath:   "/api/topics",
				CreatePath: "/api/topics",
				ItemPath:   topicPath,
				Encode:     encodeTopic,
				DecodeList: decodeTopics,
				DecodeOne:  decodeTopic,
			},
			Validate:  TopicDraft.Validate,
			Placement: store.Prepend,
			Notifier:  notifier,
		}),
		requester: requester,
		notifier:  notifier,
	}
}

func topicPath(id string) string {
	return "/api/topics/" + url.PathEscape(id)
}

// Search returns the mirrored topics whose title or description contains keyword
func (t *Topics) Search(keyword string) []Topic {
	return search.Filter(t.Items(), keyword,
		func(topic Topic) string { return topic.Title },
		func(topic Topic) string { return topic.Description },
	)
}

// AddComment comments on a topic. Once the server confirmed, the comment is
// appended to that topic's comments; no other topic changes.
func (t *Topics) AddComment(ctx context.Context, topicID string, draft CommentDraft) (Comment, error) {
	if err := draft.Validate(); err != nil {
		t.notify(core.OperationCreate, err)
		return Comment{}, err
	}

	var created Comment
	var confirmed *Topic
	err := t.Change(ctx, core.OperationCreate, topicID, func(ctx context.Context) error {
		var raw []byte
		if err := t.requester.Request(ctx, http.MethodPost, topicPath(topicID)+"/comments", encodeComment(draft), &raw); err != nil {
			return err
		}
		// the api answers with the new comment, older versions with the whole topic
		var shape struct {
			Comments json.RawMessage `json:"comments"`
		}
		if json.Unmarshal(raw, &shape) == nil && len(shape.Comments) > 0 && shape.Comments[0] == '[' {
			topic, err := decodeTopic(raw)
			if err != nil {
				return &core.Failure{Kind: core.KindDecode, Message: "topic " + topicID, Err: err}
			}
			confirmed = &topic
			if n := len(topic.Comments); n > 0 {
				created = topic.Comments[n-1]
			}
			return nil
		}
		comment, err := decodeComment(raw)
		if err != nil {
			return &core.Failure{Kind: core.KindDecode, Message: "comment on topic " + topicID, Err: err}
		}
		if comment.TopicID == "" {
			comment.TopicID = topicID
		}
		created = comment
		return nil
	}, func(topic Topic) Topic {
		if confirmed != nil {
			topic.Comments = confirmed.Comments
			return topic
		}
		topic.Comments = append(append([]Comment{}, topic.Comments...), created)
		return topic
	})
	return created, err
}

// RemoveComment deletes a comment from a topic by its id
func (t *Topics) RemoveComment(ctx context.Context, topicID, commentID string) error {
	return t.Change(ctx, core.OperationDelete, topicID, func(ctx context.Context) error {
		return t.requester.Request(ctx, http.MethodDelete,
			topicPath(topicID)+"/comments/"+url.PathEscape(commentID), nil, nil)
	}, func(topic Topic) Topic {
		comments := make([]Comment, 0, len(topic.Comments))
		for _, c := range topic.Comments {
			if c.ID != commentID {
				comments = append(comments, c)
			}
		}
		topic.Comments = comments
		return topic
	})
}

func (t *Topics) notify(operation core.Operation, err error) {
	if t.notifier != nil {
		t.notifier.Notify("topic", operation, err)
	}
}
