// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/fashionera/core"
	"github.com/relabs-tech/fashionera/core/client"
)

type testUser struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

type testPost struct {
	ID       string `json:"_id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Category string `json:"category"`
	User     struct {
		ID string `json:"_id"`
	} `json:"user"`
}

func newTestBackend(t *testing.T) (*Backend, client.Client) {
	t.Helper()
	router := mux.NewRouter()
	backend := New(&Builder{Router: router, Secret: []byte("test-secret"), Admins: []string{"Admin@fashionera.example"}})
	return backend, client.NewWithRouter(router)
}

func login(t *testing.T, c client.Client, googleID, email, username string) (client.Client, testUser) {
	t.Helper()
	var response struct {
		User  testUser `json:"user"`
		Token string   `json:"token"`
	}
	body := map[string]string{"googleId": googleID, "email": email, "username": username}
	require.NoError(t, c.Post(context.Background(), "/api/auth/google-login", body, &response))
	require.NotEmpty(t, response.Token)
	return c.WithToken(response.Token), response.User
}

func TestGoogleLoginUpserts(t *testing.T) {
	ctx := context.Background()
	_, c := newTestBackend(t)

	_, first := login(t, c, "g-1", "ada@fashionera.example", "Ada")
	ada, second := login(t, c, "g-1", "ada@fashionera.example", "Ada L.")
	assert.Equal(t, first.ID, second.ID, "a known google id must not register twice")

	var profile struct {
		User struct {
			ID       string `json:"_id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, ada.Get(ctx, "/auth/profile", &profile))
	assert.Equal(t, "Ada L.", profile.User.Username)

	err := c.Get(ctx, "/auth/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, core.StatusOf(err))

	err = c.Post(ctx, "/api/auth/google-login", map[string]string{"googleId": "g-2", "email": "not an address"}, nil)
	assert.Equal(t, http.StatusBadRequest, core.StatusOf(err))
}

func TestLogoutRevokes(t *testing.T) {
	ctx := context.Background()
	_, c := newTestBackend(t)
	ada, _ := login(t, c, "g-1", "ada@fashionera.example", "Ada")

	require.NoError(t, ada.Get(ctx, "/auth/logout", nil))
	err := ada.Get(ctx, "/auth/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, core.StatusOf(err))

	// logging out without a session is fine
	require.NoError(t, c.Get(ctx, "/auth/logout", nil))
}

func TestPosts(t *testing.T) {
	ctx := context.Background()
	_, c := newTestBackend(t)
	ada, adaUser := login(t, c, "g-1", "ada@fashionera.example", "Ada")
	bob, _ := login(t, c, "g-2", "bob@fashionera.example", "Bob")

	body := map[string]string{"title": "Fabric Tips!", "category": "tread", "desc": "d", "content": "<p>c</p>"}
	err := c.Post(ctx, "/posts", body, nil)
	assert.Equal(t, http.StatusUnauthorized, core.StatusOf(err))

	var created testPost
	require.NoError(t, ada.Post(ctx, "/posts", body, &created))
	assert.Equal(t, "fabric-tips", created.Slug)
	assert.Equal(t, "trend", created.Category)
	assert.Equal(t, adaUser.ID, created.User.ID)

	var again testPost
	require.NoError(t, ada.Post(ctx, "/posts", body, &again))
	assert.Equal(t, "fabric-tips-2", again.Slug)

	err = ada.Post(ctx, "/posts", map[string]string{"title": " ", "category": "trend", "desc": "d", "content": "c"}, nil)
	assert.Equal(t, http.StatusBadRequest, core.StatusOf(err))
	err = ada.Post(ctx, "/posts", map[string]string{"title": "x", "category": "gossip", "desc": "d", "content": "c"}, nil)
	assert.Equal(t, http.StatusBadRequest, core.StatusOf(err))

	var list struct {
		Posts []testPost `json:"posts"`
	}
	require.NoError(t, c.Get(ctx, "/posts?limit=1", &list))
	require.Len(t, list.Posts, 1)
	assert.Equal(t, again.ID, list.Posts[0].ID, "newest first")
	require.NoError(t, c.Get(ctx, "/posts?cat=general", &list))
	assert.Empty(t, list.Posts)
	require.NoError(t, c.Get(ctx, "/posts?cat=trend", &list))
	assert.Len(t, list.Posts, 2)

	var read testPost
	require.NoError(t, c.Get(ctx, "/posts/fabric-tips", &read))
	assert.Equal(t, created.ID, read.ID)
	err = c.Get(ctx, "/posts/nope", nil)
	assert.Equal(t, http.StatusNotFound, core.StatusOf(err))

	body["title"] = "Fabric Tips, revised"
	err = bob.Put(ctx, "/posts/fabric-tips", body, nil)
	assert.Equal(t, http.StatusForbidden, core.StatusOf(err))
	var updated testPost
	require.NoError(t, ada.Put(ctx, "/posts/fabric-tips", body, &updated))
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "fabric-tips", updated.Slug, "the slug stays")

	err = bob.Delete(ctx, "/posts/"+created.ID)
	assert.Equal(t, http.StatusForbidden, core.StatusOf(err))
	require.NoError(t, ada.Delete(ctx, "/posts/"+created.ID))
	err = ada.Delete(ctx, "/posts/"+created.ID)
	assert.Equal(t, http.StatusNotFound, core.StatusOf(err))
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	_, c := newTestBackend(t)
	ada, _ := login(t, c, "g-1", "ada@fashionera.example", "Ada")
	bob, _ := login(t, c, "g-2", "bob@fashionera.example", "Bob")
	admin, _ := login(t, c, "g-3", "admin@fashionera.example", "Admin")

	var p testPost
	require.NoError(t, ada.Post(ctx, "/posts", map[string]string{"title": "T", "category": "story", "desc": "d", "content": "c"}, &p))

	var comment struct {
		ID     string `json:"_id"`
		PostID string `json:"postId"`
		Text   string `json:"text"`
	}
	require.NoError(t, bob.Post(ctx, "/comments/"+p.ID, map[string]string{"text": "Nice"}, &comment))
	assert.Equal(t, p.ID, comment.PostID)
	err := bob.Post(ctx, "/comments/nope", map[string]string{"text": "Nice"}, nil)
	assert.Equal(t, http.StatusNotFound, core.StatusOf(err))
	err = bob.Post(ctx, "/comments/"+p.ID, map[string]string{"text": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, core.StatusOf(err))

	var thread struct {
		Comments []struct {
			Text string `json:"text"`
		} `json:"comments"`
	}
	require.NoError(t, c.Get(ctx, "/comments/"+p.ID, &thread))
	require.Len(t, thread.Comments, 1)
	assert.Equal(t, "Nice", thread.Comments[0].Text)

	err = bob.Get(ctx, "/api/comments", nil)
	assert.Equal(t, http.StatusForbidden, core.StatusOf(err))
	var all []struct {
		Email   string `json:"email"`
		Comment string `json:"comment"`
	}
	require.NoError(t, admin.Get(ctx, "/api/comments", &all))
	require.Len(t, all, 1)
	assert.Equal(t, "bob@fashionera.example", all[0].Email)
	assert.Equal(t, "Nice", all[0].Comment)

	err = ada.Delete(ctx, "/comments/"+comment.ID)
	assert.Equal(t, http.StatusForbidden, core.StatusOf(err))
	require.NoError(t, admin.Delete(ctx, "/comments/"+comment.ID))
}

func TestTopics(t *testing.T) {
	ctx := context.Background()
	_, c := newTestBackend(t)
	ada, _ := login(t, c, "g-1", "ada@fashionera.example", "Ada")
	bob, _ := login(t, c, "g-2", "bob@fashionera.example", "Bob")
	admin, _ := login(t, c, "g-3", "admin@fashionera.example", "Admin")

	var topic struct {
		ID string `json:"_id"`
	}
	require.NoError(t, ada.Post(ctx, "/api/topics", map[string]string{"title": "Fabric Tips", "description": "share"}, &topic))
	err := ada.Post(ctx, "/api/topics", map[string]string{"title": "no description"}, nil)
	assert.Equal(t, http.StatusBadRequest, core.StatusOf(err))

	var comment struct {
		ID       string `json:"_id"`
		TopicID  string `json:"topicId"`
		Username string `json:"username"`
	}
	require.NoError(t, bob.Post(ctx, "/api/topics/"+topic.ID+"/comments", map[string]string{"text": "Nice"}, &comment))
	assert.Equal(t, topic.ID, comment.TopicID)
	assert.Equal(t, "Bob", comment.Username)

	var topics []struct {
		ID       string `json:"_id"`
		Comments []struct {
			Text string `json:"text"`
		} `json:"comments"`
	}
	require.NoError(t, c.Get(ctx, "/api/topics", &topics))
	require.Len(t, topics, 1)
	require.Len(t, topics[0].Comments, 1)

	err = ada.Delete(ctx, "/api/topics/"+topic.ID+"/comments/"+comment.ID)
	assert.Equal(t, http.StatusForbidden, core.StatusOf(err))
	require.NoError(t, bob.Delete(ctx, "/api/topics/"+topic.ID+"/comments/"+comment.ID))

	err = ada.Delete(ctx, "/api/topics/"+topic.ID)
	assert.Equal(t, http.StatusForbidden, core.StatusOf(err))
	require.NoError(t, admin.Delete(ctx, "/api/topics/"+topic.ID))
	require.NoError(t, c.Get(ctx, "/api/topics", &topics))
	assert.Empty(t, topics)
}

func TestAdmin(t *testing.T) {
	ctx := context.Background()
	_, c := newTestBackend(t)
	ada, _ := login(t, c, "g-1", "ada@fashionera.example", "Ada")
	admin, _ := login(t, c, "g-3", "admin@fashionera.example", "Admin")
	require.NoError(t, ada.Post(ctx, "/posts", map[string]string{"title": "T", "category": "story", "desc": "d", "content": "c"}, nil))

	err := ada.Get(ctx, "/api/admin/dashboard-stats", nil)
	assert.Equal(t, http.StatusForbidden, core.StatusOf(err))

	var stats struct {
		Success bool `json:"success"`
		Data    struct {
			TotalPosts    int `json:"totalPosts"`
			TotalUsers    int `json:"totalUsers"`
			TotalComments int `json:"totalComments"`
		} `json:"data"`
	}
	require.NoError(t, admin.Get(ctx, "/api/admin/dashboard-stats", &stats))
	assert.True(t, stats.Success)
	assert.Equal(t, 1, stats.Data.TotalPosts)
	assert.Equal(t, 2, stats.Data.TotalUsers)
	assert.Equal(t, 0, stats.Data.TotalComments)

	var users struct {
		Users []testUser `json:"users"`
	}
	require.NoError(t, admin.Get(ctx, "/api/admin/users", &users))
	assert.Len(t, users.Users, 2)
}

func TestAdminAccounts(t *testing.T) {
	ctx := context.Background()
	_, c := newTestBackend(t)

	register := map[string]string{"name": "Admin", "email": "ADMIN@fashionera.example", "password": "correct horse"}
	var registered struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, c.Post(ctx, "/api/admin/register", register, &registered))
	assert.True(t, registered.Success)

	err := c.Post(ctx, "/api/admin/register", register, nil)
	assert.Equal(t, http.StatusBadRequest, core.StatusOf(err), "registered twice")
	err = c.Post(ctx, "/api/admin/register", map[string]string{"name": "Ada", "email": "ada@fashionera.example", "password": "correct horse"}, nil)
	assert.Equal(t, http.StatusForbidden, core.StatusOf(err), "not an admin address")
	err = c.Post(ctx, "/api/admin/register", map[string]string{"name": "Admin", "email": "admin@fashionera.example", "password": "short"}, nil)
	assert.Equal(t, http.StatusBadRequest, core.StatusOf(err))

	err = c.Post(ctx, "/api/admin/login", map[string]string{"email": "admin@fashionera.example", "password": "wrong horse"}, nil)
	assert.Equal(t, http.StatusUnauthorized, core.StatusOf(err))

	var session struct {
		Admin struct {
			ID    string `json:"_id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"admin"`
		Token string `json:"token"`
	}
	require.NoError(t, c.Post(ctx, "/api/admin/login", map[string]string{"email": "Admin@fashionera.example", "password": "correct horse"}, &session))
	require.NotEmpty(t, session.Token)
	assert.Equal(t, "admin@fashionera.example", session.Admin.Email)
	admin := c.WithToken(session.Token)

	var me struct {
		Admin struct {
			ID   string `json:"_id"`
			Name string `json:"name"`
		} `json:"admin"`
	}
	require.NoError(t, admin.Get(ctx, "/api/admin/me", &me))
	assert.Equal(t, session.Admin.ID, me.Admin.ID)
	assert.Equal(t, "Admin", me.Admin.Name)
	require.NoError(t, admin.Get(ctx, "/api/admin/dashboard-stats", nil))

	// users are not admins
	ada, _ := login(t, c, "g-1", "ada@fashionera.example", "Ada")
	assert.Equal(t, http.StatusForbidden, core.StatusOf(ada.Get(ctx, "/api/admin/me", nil)))
	assert.Equal(t, http.StatusUnauthorized, core.StatusOf(c.Get(ctx, "/api/admin/me", nil)))

	require.NoError(t, admin.Post(ctx, "/api/admin/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, core.StatusOf(admin.Get(ctx, "/api/admin/me", nil)))
}

func TestNewsletter(t *testing.T) {
	ctx := context.Background()
	backend, c := newTestBackend(t)

	var response struct {
		Message string `json:"message"`
	}
	require.NoError(t, c.Post(ctx, "/newsletter/subscribe", map[string]string{"email": "ada@fashionera.example"}, &response))
	assert.NotEmpty(t, response.Message)

	err := c.Post(ctx, "/newsletter/subscribe", map[string]string{"email": "ADA@fashionera.example"}, nil)
	assert.Equal(t, http.StatusBadRequest, core.StatusOf(err))
	assert.Contains(t, err.Error(), "already subscribed")

	err = c.Post(ctx, "/newsletter/subscribe", map[string]string{"email": "nope"}, nil)
	assert.Equal(t, http.StatusBadRequest, core.StatusOf(err))
	assert.Equal(t, 1, backend.Subscribers())
}

func TestPreflight(t *testing.T) {
	router := mux.NewRouter()
	New(&Builder{Router: router, Secret: []byte("test-secret")})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/posts", nil)
	router.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "fabric-tips", slugify("  Fabric Tips! "))
	assert.Equal(t, "trend-report-2024", slugify("Trend Report: 2024"))
	assert.Equal(t, "post", slugify("!!!"))
}
