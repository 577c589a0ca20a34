// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package api is an in-memory implementation of the fashionera api.

It serves posts, post comments, the topic forum, the admin dashboard, accounts
and the newsletter on a mux router, in the wire format the production api
uses. Request bodies are validated against the JSON schemas in schemas/.
Sessions are HS256 tokens issued on google-login, see access.JwtAuthority.

	router := mux.NewRouter()
	api.New(&api.Builder{Router: router, Secret: secret, Admins: []string{"admin@fashionera.example"}})
	http.ListenAndServe(":3000", router)

Nothing is persisted; the backend is meant for development and tests.
*/
package api

import (
	"embed"
	"io"
	"io/fs"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/fashionera/core/access"
	"github.com/relabs-tech/fashionera/core/logger"
	"github.com/relabs-tech/fashionera/core/media"
	"github.com/relabs-tech/fashionera/core/schema"
)

//go:embed schemas
var schemaFS embed.FS

// RoleAdmin is the role of administrators
const RoleAdmin = "admin"

// Builder is a builder helper for the Backend
type Builder struct {
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Secret signs the session tokens. This is mandatory.
	Secret []byte
	// Issuer of the session tokens, default is "fashionera"
	Issuer string
	// TTL of the session tokens, default is 24 hours
	TTL time.Duration
	// Admins are the email addresses of users who get the admin role
	Admins []string
	// Media serves uploaded cover images. This is optional.
	Media *media.LocalFilesystem
}

// Backend is the in-memory fashionera api
type Backend struct {
	router    *mux.Router
	authority *access.JwtAuthority
	validator *schema.Validator
	admins    map[string]bool

	mutex         sync.RWMutex
	posts         []*post // newest first
	comments      []*comment
	topics        []*topic // newest first
	users         map[string]*user
	adminAccounts map[string]*adminAccount // by lower case email
	subscribers   map[string]time.Time
	sequence      int
}

type author struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type post struct {
	ID        string    `json:"_id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Desc      string    `json:"desc"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Img       string    `json:"img,omitempty"`
	User      author    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type comment struct {
	ID        string    `json:"_id"`
	PostID    string    `json:"postId,omitempty"`
	User      author    `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// topicComment is a comment embedded in a topic. The forum speaks a flatter
// dialect than the post comments.
type topicComment struct {
	ID        string    `json:"_id"`
	TopicID   string    `json:"topicId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type topic struct {
	ID          string          `json:"_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Image       string          `json:"image,omitempty"`
	Comments    []*topicComment `json:"comments"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type user struct {
	ID        string    `json:"_id"`
	GoogleID  string    `json:"googleId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// New realizes the backend and adds its routes to the router
func New(bb *Builder) *Backend {
	if bb.Router == nil {
		panic("Router is missing")
	}
	if len(bb.Secret) == 0 {
		panic("Secret is missing")
	}
	issuer := bb.Issuer
	if issuer == "" {
		issuer = "fashionera"
	}

	schemas, err := fs.Sub(schemaFS, "schemas")
	if err != nil {
		panic(err)
	}
	validator, err := schema.NewValidatorFromFS(schemas)
	if err != nil {
		panic(err)
	}

	b := &Backend{
		router:        bb.Router,
		authority:     access.NewJwtAuthority(access.JwtAuthorityBuilder{Secret: bb.Secret, Issuer: issuer, TTL: bb.TTL}),
		validator:     validator,
		admins:        make(map[string]bool),
		users:         make(map[string]*user),
		adminAccounts: make(map[string]*adminAccount),
		subscribers:   make(map[string]time.Time),
	}
	for _, email := range bb.Admins {
		b.admins[strings.ToLower(strings.TrimSpace(email))] = true
	}

	logger.AddRequestID(b.router)
	b.handleCORS()
	b.router.Use(b.authority.Middleware())

	b.handlePosts()
	b.handleComments()
	b.handleTopics()
	b.handleAccounts()
	b.handleAdmin()
	b.handleAdminAccounts()
	b.handleNewsletter()
	if bb.Media != nil {
		bb.Media.Configure(b.router)
	}
	return b
}

// Authority returns the authority which issues and verifies session tokens
func (b *Backend) Authority() *access.JwtAuthority {
	return b.authority
}

// nextID must be called with the mutex held
func (b *Backend) nextID(prefix string) string {
	b.sequence++
	return prefix + strconv.Itoa(b.sequence)
}

// decodeBody reads the request body, validates it against schemaID and
// unmarshals it into v. It answers the request itself if anything is wrong.
func (b *Backend) decodeBody(w http.ResponseWriter, r *http.Request, schemaID string, v interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return false
	}
	if err := b.validator.ValidateBytes(body, schemaID); err != nil {
		logger.FromContext(r.Context()).WithError(err).Debugln("rejecting body")
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "message": message})
}

// mayChange returns true if the authorization belongs to owner or to an admin
func mayChange(auth *access.Authorization, owner string) bool {
	return auth != nil && (auth.UserID == owner || auth.HasRole(RoleAdmin))
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a title into a url friendly slug
func slugify(title string) string {
	slug := strings.Trim(nonAlphanumeric.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		slug = "post"
	}
	return slug
}
