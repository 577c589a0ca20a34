// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package blog

import (
	"fmt"
	"strings"
	"time"

	"github.com/relabs-tech/fashionera/core"
	"github.com/relabs-tech/fashionera/core/store"
)

// Category of a post
type Category string

// all post categories
const (
	CategoryGeneral    Category = "general"
	CategoryTechnology Category = "technology"
	CategorySpotlight  Category = "spotlight"
	CategoryTailor     Category = "tailor"
	CategoryTrend      Category = "trend"
	CategoryStory      Category = "story"
)

// Categories lists all known categories in display order
var Categories = []Category{
	CategoryGeneral, CategoryTechnology, CategorySpotlight, CategoryTailor, CategoryTrend, CategoryStory,
}

var categoryAliases = map[string]Category{
	"spot":      CategorySpotlight,
	"tread":     CategoryTrend,
	"tailoring": CategoryTailor,
}

// ParseCategory parses a category name. Short names used by older clients
// ("spot", "tread") are accepted.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	if c, ok := categoryAliases[s]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown category '%s'", s)
}

// Post is a blog post
type Post struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	BodyHTML       string    `json:"bodyHtml"`
	Category       Category  `json:"category"`
	CoverImagePath string    `json:"coverImagePath,omitempty"`
	AuthorID       string    `json:"authorId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Key implements store.Entity
func (p Post) Key() string { return p.ID }

// PostDraft is the input for creating or editing a post
type PostDraft struct {
	Title          string
	Category       string
	Description    string
	BodyHTML       string
	CoverImagePath string
}

// Validate checks that all fields but the cover are set and that the category is known
func (d PostDraft) Validate() error {
	if err := store.Required(
		store.Field{Name: "title", Value: d.Title},
		store.Field{Name: "category", Value: d.Category},
		store.Field{Name: "description", Value: d.Description},
		store.Field{Name: "body", Value: d.BodyHTML},
	); err != nil {
		return err
	}
	if _, err := ParseCategory(d.Category); err != nil {
		return &core.Failure{Kind: core.KindValidation, Err: err}
	}
	return nil
}

// Comment is a comment on exactly one post or one topic
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId,omitempty"`
	TopicID    string    `json:"topicId,omitempty"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Key implements store.Entity
func (c Comment) Key() string { return c.ID }

// CommentDraft is the input for a new comment. The author is whoever is signed in.
type CommentDraft struct {
	Text string
}

// Validate checks that there is some text
func (d CommentDraft) Validate() error {
	return store.Required(store.Field{Name: "text", Value: d.Text})
}

// Topic is a forum topic. Its comments are embedded, in creation order.
type Topic struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Comments    []Comment `json:"comments"`
}

// Key implements store.Entity
func (t Topic) Key() string { return t.ID }

// TopicDraft is the input for a new topic
type TopicDraft struct {
	Title       string
	Description string
	ImageURL    string
}

// Validate checks that title and description are set
func (d TopicDraft) Validate() error {
	return store.Required(
		store.Field{Name: "title", Value: d.Title},
		store.Field{Name: "description", Value: d.Description},
	)
}

// User is a registered user as listed for administrators
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Key implements store.Entity
func (u User) Key() string { return u.ID }

// AdminDraft is the input for a new administrator password account
type AdminDraft struct {
	Name     string
	Email    string
	Password string
}

// Validate checks that all fields are set and the password has at least 8 characters
func (d AdminDraft) Validate() error {
	if err := store.Required(
		store.Field{Name: "name", Value: d.Name},
		store.Field{Name: "email", Value: d.Email},
		store.Field{Name: "password", Value: d.Password},
	); err != nil {
		return err
	}
	if len(d.Password) < 8 {
		return core.NewFailure(core.KindValidation, "password must have at least 8 characters")
	}
	return nil
}

// DashboardStats are the admin dashboard counters
type DashboardStats struct {
	Posts    int `json:"posts"`
	Users    int `json:"users"`
	Comments int `json:"comments"`
}

// readOnly is the draft type of collections which are never written
type readOnly struct{}
