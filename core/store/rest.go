// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package store

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/fashionera/core"
)

// Requester issues a single REST request, see client.Client.Request
type Requester interface {
	Request(ctx context.Context, method, path string, body interface{}, result interface{}) error
}

// REST is a Remote talking to a REST api. Routes are configuration: every path is
// set explicitly because the api is not uniform.
//
// Decoding happens here, at the request boundary. DecodeList and DecodeOne map
// whatever the api sends to the canonical entity; a failure there is a DecodeError.
type REST[T Entity, D any] struct {
	Requester Requester
	// ListPath is used for List (GET)
	ListPath string
	// CreatePath is used for Create (POST)
	CreatePath string
	// ItemPath returns the path for Update (PUT) and Delete (DELETE)
	ItemPath func(key string) string
	// UpdatePath overrides ItemPath for updates
	UpdatePath func(key string) string
	// Encode maps a draft to the request body, default is the draft itself
	Encode func(D) interface{}
	// DecodeList maps a list response, default is a JSON array of T
	DecodeList func(raw []byte) ([]T, error)
	// DecodeOne maps a single entity response, default is a JSON T
	DecodeOne func(raw []byte) (T, error)
}

// List implements Remote
func (r *REST[T, D]) List(ctx context.Context) ([]T, error) {
	if r.ListPath == "" {
		return nil, ErrNotSupported
	}
	var raw []byte
	if err := r.Requester.Request(ctx, http.MethodGet, r.ListPath, nil, &raw); err != nil {
		return nil, err
	}
	if r.DecodeList != nil {
		items, err := r.DecodeList(raw)
		if err != nil {
			return nil, decodeFailure(r.ListPath, err)
		}
		return items, nil
	}
	var items []T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, decodeFailure(r.ListPath, err)
		}
	}
	return items, nil
}

// Create implements Remote
func (r *REST[T, D]) Create(ctx context.Context, draft D) (T, error) {
	if r.CreatePath == "" {
		var zero T
		return zero, ErrNotSupported
	}
	return r.one(ctx, http.MethodPost, r.CreatePath, r.encode(draft))
}

// Update implements Remote
func (r *REST[T, D]) Update(ctx context.Context, key string, patch D) (T, error) {
	pathFor := r.UpdatePath
	if pathFor == nil {
		pathFor = r.ItemPath
	}
	if pathFor == nil {
		var zero T
		return zero, ErrNotSupported
	}
	return r.one(ctx, http.MethodPut, pathFor(key), r.encode(patch))
}

// Delete implements Remote
func (r *REST[T, D]) Delete(ctx context.Context, key string) error {
	if r.ItemPath == nil {
		return ErrNotSupported
	}
	return r.Requester.Request(ctx, http.MethodDelete, r.ItemPath(key), nil, nil)
}

func (r *REST[T, D]) encode(draft D) interface{} {
	if r.Encode != nil {
		return r.Encode(draft)
	}
	return draft
}

func (r *REST[T, D]) one(ctx context.Context, method, path string, body interface{}) (T, error) {
	var zero T
	var raw []byte
	if err := r.Requester.Request(ctx, method, path, body, &raw); err != nil {
		return zero, err
	}
	if r.DecodeOne != nil {
		item, err := r.DecodeOne(raw)
		if err != nil {
			return zero, decodeFailure(path, err)
		}
		return item, nil
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return zero, decodeFailure(path, err)
	}
	return item, nil
}

func decodeFailure(path string, err error) error {
	if core.KindOf(err) != "" {
		return err
	}
	return &core.Failure{Kind: core.KindDecode, Message: path, Err: err}
}
