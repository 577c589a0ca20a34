// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package blog

// The api grew over time and is not consistent about its field names: ids
// come as "_id" or "id", authors as "user", "username" or "userId", comment
// text as "text" or "comment", and lists are sometimes wrapped in envelopes.
// The wire types below accept all of these and map them to the canonical
// entities. Nothing outside this file sees the wire format.

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// wireAuthor is either a plain name or an object
type wireAuthor struct {
	ID    string
	Name  string
	Email string
}

func (a *wireAuthor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &a.Name)
	}
	var object struct {
		ID          string `json:"id"`
		MongoID     string `json:"_id"`
		Username    string `json:"username"`
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	}
	if err := json.Unmarshal(data, &object); err != nil {
		return err
	}
	a.ID = firstOf(object.MongoID, object.ID)
	a.Name = firstOf(object.Username, object.Name, object.DisplayName)
	a.Email = object.Email
	return nil
}

type wirePost struct {
	ID          string     `json:"id"`
	MongoID     string     `json:"_id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Desc        string     `json:"desc"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	Body        string     `json:"body"`
	BodyHTML    string     `json:"bodyHtml"`
	Category    string     `json:"category"`
	Img         string     `json:"img"`
	Cover       string     `json:"cover"`
	User        wireAuthor `json:"user"`
	UserID      string     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (w wirePost) post() Post {
	category, err := ParseCategory(w.Category)
	if err != nil {
		category = Category(strings.ToLower(w.Category))
	}
	return Post{
		ID:             firstOf(w.MongoID, w.ID),
		Slug:           w.Slug,
		Title:          w.Title,
		Description:    firstOf(w.Desc, w.Description),
		BodyHTML:       firstOf(w.Content, w.BodyHTML, w.Body),
		Category:       category,
		CoverImagePath: firstOf(w.Img, w.Cover),
		AuthorID:       firstOf(w.User.ID, w.UserID),
		CreatedAt:      w.CreatedAt,
	}
}

type wireComment struct {
	ID        string     `json:"id"`
	MongoID   string     `json:"_id"`
	PostID    string     `json:"postId"`
	TopicID   string     `json:"topicId"`
	User      wireAuthor `json:"user"`
	Username  string     `json:"username"`
	UserID    string     `json:"userId"`
	Email     string     `json:"email"`
	Text      string     `json:"text"`
	Comment   string     `json:"comment"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (w wireComment) comment() Comment {
	return Comment{
		ID:         firstOf(w.MongoID, w.ID),
		PostID:     w.PostID,
		TopicID:    w.TopicID,
		AuthorID:   firstOf(w.User.ID, w.UserID),
		AuthorName: firstOf(w.User.Name, w.Username, w.User.Email, w.Email),
		Text:       firstOf(w.Text, w.Comment),
		CreatedAt:  w.CreatedAt,
	}
}

type wireTopic struct {
	ID          string        `json:"id"`
	MongoID     string        `json:"_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Desc        string        `json:"desc"`
	Image       string        `json:"image"`
	ImageURL    string        `json:"imageUrl"`
	Img         string        `json:"img"`
	Comments    []wireComment `json:"comments"`
}

func (w wireTopic) topic() Topic {
	t := Topic{
		ID:          firstOf(w.MongoID, w.ID),
		Title:       w.Title,
		Description: firstOf(w.Description, w.Desc),
		ImageURL:    firstOf(w.ImageURL, w.Image, w.Img),
		Comments:    make([]Comment, 0, len(w.Comments)),
	}
	for _, wc := range w.Comments {
		c := wc.comment()
		if c.TopicID == "" {
			c.TopicID = t.ID
		}
		t.Comments = append(t.Comments, c)
	}
	return t
}

type wireUser struct {
	ID        string    `json:"id"`
	MongoID   string    `json:"_id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func (w wireUser) user() User {
	return User{
		ID:        firstOf(w.MongoID, w.ID),
		Name:      firstOf(w.Username, w.Name),
		Email:     w.Email,
		CreatedAt: w.CreatedAt,
	}
}

// unwrapList returns the JSON array in raw. raw is either the array itself
// or an object carrying it under one of keys. An object with "success": false
// is an error.
func unwrapList(raw []byte, keys ...string) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []byte("[]"), nil
	}
	if raw[0] == '[' {
		return raw, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	if err := checkSuccess(envelope); err != nil {
		return nil, err
	}
	for _, key := range keys {
		if list, ok := envelope[key]; ok {
			return list, nil
		}
	}
	return nil, errors.New("response carries no list")
}

func checkSuccess(envelope map[string]json.RawMessage) error {
	success, ok := envelope["success"]
	if !ok || string(success) != "false" {
		return nil
	}
	var message string
	json.Unmarshal(envelope["message"], &message)
	if message == "" {
		message = "request was not successful"
	}
	return errors.New(message)
}

func decodeList[W any, T any](raw []byte, convert func(W) T, keys ...string) ([]T, error) {
	list, err := unwrapList(raw, keys...)
	if err != nil {
		return nil, err
	}
	var wire []W
	if err := json.Unmarshal(list, &wire); err != nil {
		return nil, err
	}
	result := make([]T, 0, len(wire))
	for _, w := range wire {
		result = append(result, convert(w))
	}
	return result, nil
}

// decodeOne decodes a single entity, either bare or under one of keys
func decodeOne[W any, T any](raw []byte, convert func(W) T, keys ...string) (T, error) {
	var zero T
	raw = bytes.TrimSpace(raw)
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return zero, err
	}
	if err := checkSuccess(envelope); err != nil {
		return zero, err
	}
	for _, key := range keys {
		if inner, ok := envelope[key]; ok && len(inner) > 0 && inner[0] == '{' {
			raw = inner
			break
		}
	}
	var w W
	if err := json.Unmarshal(raw, &w); err != nil {
		return zero, err
	}
	return convert(w), nil
}

func decodePosts(raw []byte) ([]Post, error) {
	return decodeList(raw, wirePost.post, "posts", "data")
}

func decodePost(raw []byte) (Post, error) {
	return decodeOne(raw, wirePost.post, "post", "data")
}

func decodeComments(raw []byte) ([]Comment, error) {
	return decodeList(raw, wireComment.comment, "comments", "data")
}

func decodeComment(raw []byte) (Comment, error) {
	return decodeOne(raw, wireComment.comment, "comment", "data")
}

func decodeTopics(raw []byte) ([]Topic, error) {
	return decodeList(raw, wireTopic.topic, "topics", "data")
}

func decodeTopic(raw []byte) (Topic, error) {
	return decodeOne(raw, wireTopic.topic, "topic", "data")
}

func decodeUsers(raw []byte) ([]User, error) {
	return decodeList(raw, wireUser.user, "users", "data")
}

func decodeUser(raw []byte) (User, error) {
	return decodeOne(raw, wireUser.user, "user", "data")
}

func decodeAdmin(raw []byte) (User, error) {
	return decodeOne(raw, wireUser.user, "admin", "data")
}

func decodeStats(raw []byte) (DashboardStats, error) {
	type wireStats struct {
		TotalPosts    int `json:"totalPosts"`
		TotalUsers    int `json:"totalUsers"`
		TotalComments int `json:"totalComments"`
	}
	return decodeOne(raw, func(w wireStats) DashboardStats {
		return DashboardStats{Posts: w.TotalPosts, Users: w.TotalUsers, Comments: w.TotalComments}
	}, "data")
}

// request bodies, in the field names the api expects

type postBody struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Desc     string `json:"desc"`
	Content  string `json:"content"`
	Img      string `json:"img,omitempty"`
}

func encodePost(d PostDraft) interface{} {
	category, err := ParseCategory(d.Category)
	if err != nil {
		category = Category(d.Category)
	}
	return postBody{
		Title:    d.Title,
		Category: string(category),
		Desc:     d.Description,
		Content:  d.BodyHTML,
		Img:      d.CoverImagePath,
	}
}

type commentBody struct {
	Text string `json:"text"`
}

func encodeComment(d CommentDraft) interface{} {
	return commentBody{Text: d.Text}
}

type topicBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
}

func encodeTopic(d TopicDraft) interface{} {
	return topicBody{Title: d.Title, Description: d.Description, Image: d.ImageURL}
}

type adminRegisterBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminLoginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
