// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/fashionera/core"
	"github.com/relabs-tech/fashionera/core/client"
)

func TestREST(t *testing.T) {
	ctx := context.Background()
	router := mux.NewRouter()
	router.HandleFunc("/things", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"things":[{"ID":"1","Title":"Fabric Tips"}]}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/things/new", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var d draft
		json.Unmarshal(body, &d)
		w.Write([]byte(`{"ID":"2","Title":"` + d.Title + `"}`))
	}).Methods(http.MethodPost)
	router.HandleFunc("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)
	router.HandleFunc("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}).Methods(http.MethodPut)

	remote := &REST[entry, draft]{
		Requester:  client.NewWithRouter(router),
		ListPath:   "/things",
		CreatePath: "/things/new",
		ItemPath:   func(key string) string { return "/things/" + key },
		DecodeList: func(raw []byte) ([]entry, error) {
			var envelope struct {
				Things []entry `json:"things"`
			}
			err := json.Unmarshal(raw, &envelope)
			return envelope.Things, err
		},
	}
	s := New(Builder[entry, draft]{Resource: "thing", Remote: remote})

	require.NoError(t, s.Load(ctx))
	assert.Equal(t, []entry{{ID: "1", Title: "Fabric Tips"}}, s.Items())

	created, err := s.Create(ctx, draft{Title: "Trend Report"})
	require.NoError(t, err)
	assert.Equal(t, entry{ID: "2", Title: "Trend Report"}, created)

	_, err = s.Update(ctx, "2", draft{Title: "x"})
	assert.True(t, core.IsKind(err, core.KindDecode), err)

	require.NoError(t, s.Remove(ctx, "2"))
	assert.Equal(t, 1, s.Len())
}

func TestRESTNotSupported(t *testing.T) {
	remote := &REST[entry, draft]{Requester: client.NewWithRouter(mux.NewRouter()), ListPath: "/things"}
	err := remote.Delete(context.Background(), "1")
	assert.True(t, errors.Is(err, ErrNotSupported))
	_, err = remote.Update(context.Background(), "1", draft{})
	assert.True(t, errors.Is(err, ErrNotSupported))
}
