// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package blog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/fashionera/core"
)

func TestParseCategory(t *testing.T) {
	for in, want := range map[string]Category{
		"general":   CategoryGeneral,
		" Trend ":   CategoryTrend,
		"tread":     CategoryTrend,
		"spot":      CategorySpotlight,
		"tailoring": CategoryTailor,
	} {
		got, err := ParseCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseCategory("gossip")
	assert.Error(t, err)
}

func TestPostDraftValidate(t *testing.T) {
	err := PostDraft{Title: "x", Category: "story"}.Validate()
	require.True(t, core.IsKind(err, core.KindValidation))
	assert.Contains(t, err.Error(), "description, body")

	assert.NoError(t, fabricTips().Validate())
}

func TestDecodePostsDialects(t *testing.T) {
	bare := `[{"id":"1","slug":"a","title":"A","description":"d","bodyHtml":"<p/>","category":"spot","cover":"/c.png","userId":"u1"}]`
	wrapped := `{"success":true,"posts":[{"_id":"1","slug":"a","title":"A","desc":"d","content":"<p/>","category":"spotlight","img":"/c.png","user":{"_id":"u1","username":"Ada"}}]}`

	for _, raw := range []string{bare, wrapped} {
		posts, err := decodePosts([]byte(raw))
		require.NoError(t, err, raw)
		require.Len(t, posts, 1)
		p := posts[0]
		assert.Equal(t, "1", p.ID)
		assert.Equal(t, "d", p.Description)
		assert.Equal(t, "<p/>", p.BodyHTML)
		assert.Equal(t, CategorySpotlight, p.Category)
		assert.Equal(t, "/c.png", p.CoverImagePath)
		assert.Equal(t, "u1", p.AuthorID)
	}

	_, err := decodePosts([]byte(`{"success":false,"message":"database down"}`))
	assert.EqualError(t, err, "database down")
	_, err = decodePosts([]byte(`{"items":[]}`))
	assert.Error(t, err)
	posts, err := decodePosts(nil)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestDecodeCommentAuthors(t *testing.T) {
	for raw, name := range map[string]string{
		`{"_id":"c1","user":"Ada","text":"Nice"}`:                                  "Ada",
		`{"_id":"c1","user":{"_id":"u1","username":"Ada"},"text":"Nice"}`:          "Ada",
		`{"_id":"c1","username":"Ada","userId":"u1","comment":"Nice"}`:             "Ada",
		`{"_id":"c1","email":"ada@fashionera.example","comment":"Nice"}`:           "ada@fashionera.example",
		`{"comment":{"_id":"c1","user":{"displayName":"Ada"},"text":"Nice"}}`:      "Ada",
		`{"data":{"id":"c1","user":{"name":"Ada","email":"x@y.z"},"text":"Nice"}}`: "Ada",
	} {
		c, err := decodeComment([]byte(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, "c1", c.ID, raw)
		assert.Equal(t, name, c.AuthorName, raw)
		assert.Equal(t, "Nice", c.Text, raw)
	}
}

func TestDecodeTopicSetsCommentParent(t *testing.T) {
	topics, err := decodeTopics([]byte(`[{"_id":"T1","title":"Fabric Tips","desc":"d","imageUrl":"/i.png",
		"comments":[{"_id":"c1","username":"Ada","text":"Linen"}]}]`))
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "d", topics[0].Description)
	assert.Equal(t, "/i.png", topics[0].ImageURL)
	require.Len(t, topics[0].Comments, 1)
	assert.Equal(t, "T1", topics[0].Comments[0].TopicID)
}

func TestDecodeStats(t *testing.T) {
	stats, err := decodeStats([]byte(`{"success":true,"data":{"totalPosts":3,"totalUsers":2,"totalComments":7}}`))
	require.NoError(t, err)
	assert.Equal(t, DashboardStats{Posts: 3, Users: 2, Comments: 7}, stats)
}

func TestEncodePostCanonicalizesCategory(t *testing.T) {
	draft := fabricTips()
	draft.CoverImagePath = "/media/covers/x.png"
	body := encodePost(draft).(postBody)
	assert.Equal(t, postBody{
		Title:    "Fabric Tips",
		Category: "trend",
		Desc:     "Which fabric for which season",
		Content:  "<p>Linen in summer.</p>",
		Img:      "/media/covers/x.png",
	}, body)
}
