// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package blog

import (
	"net/url"
	"sync"

	"github.com/relabs-tech/fashionera/core"
	"github.com/relabs-tech/fashionera/core/store"
)

// Comments holds one comment thread per post
type Comments struct {
	requester store.Requester
	notifier  core.Notifier

	mutex   sync.Mutex
	threads map[string]*store.Store[Comment, CommentDraft]
}

func newComments(requester store.Requester, notifier core.Notifier) *Comments {
	return &Comments{
		requester: requester,
		notifier:  notifier,
		threads:   make(map[string]*store.Store[Comment, CommentDraft]),
	}
}

// Thread returns the comment thread of a post. New comments are appended. The
// thread is unloaded until Load is called.
func (c *Comments) Thread(postID string) *store.Store[Comment, CommentDraft] {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if thread, ok := c.threads[postID]; ok {
		return thread
	}
	path := "/comments/" + url.PathEscape(postID)
	thread := store.New(store.Builder[Comment, CommentDraft]{
		Resource: "comment",
		Remote: &store.REST[Comment, CommentDraft]{
			Requester:  c.requester,
			ListPath:   path,
			CreatePath: path,
			ItemPath:   func(id string) string { return "/comments/" + url.PathEscape(id) },
			Encode:     encodeComment,
			DecodeList: decodeComments,
			DecodeOne:  decodeComment,
		},
		Validate:  CommentDraft.Validate,
		Placement: store.Append,
		Notifier:  c.notifier,
	})
	c.threads[postID] = thread
	return thread
}

// Forget drops the thread of a post, for example when the post view closes
func (c *Comments) Forget(postID string) {
	c.mutex.Lock()
	delete(c.threads, postID)
	c.mutex.Unlock()
}
