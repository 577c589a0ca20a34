// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package core

import (
	"errors"
	"fmt"
)

// Kind classifies a Failure
type Kind string

// all failure kinds
const (
	// KindValidation is a local, pre-network rejection. No request was issued.
	KindValidation Kind = "ValidationError"
	// KindHTTP is a non-2xx response. Status carries the status code.
	KindHTTP Kind = "HttpError"
	// KindTransport means the server could not be reached or the connection broke.
	KindTransport Kind = "TransportError"
	// KindDecode means the response body was not what we expected.
	KindDecode Kind = "DecodeError"
	// KindAuthCancelled means the user dismissed the interactive sign-in.
	KindAuthCancelled Kind = "AuthCancelled"
	// KindAuth is a failure reported by the identity provider.
	KindAuth Kind = "AuthError"
)

// Failure is the typed error returned by all client side operations
type Failure struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (f *Failure) Error() string {
	s := string(f.Kind)
	if f.Status != 0 {
		s += fmt.Sprintf(" (status %d)", f.Status)
	}
	if f.Message != "" {
		s += ": " + f.Message
	}
	if f.Err != nil {
		s += ": " + f.Err.Error()
	}
	return s
}

// Unwrap returns the underlying error, if any
func (f *Failure) Unwrap() error {
	return f.Err
}

// Is reports whether target is a Failure of the same kind. This makes
// errors.Is(err, &Failure{Kind: KindValidation}) work.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && (t.Status == 0 || t.Status == f.Status)
}

// NewFailure creates a failure of the given kind
func NewFailure(kind Kind, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapFailure wraps err into a failure of the given kind
func WrapFailure(kind Kind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// KindOf returns the failure kind of err, or "" if err is not a Failure
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// IsKind returns true if err is a Failure of the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// StatusOf returns the HTTP status of an HttpError failure, 0 otherwise
func StatusOf(err error) int {
	var f *Failure
	if errors.As(err, &f) && f.Kind == KindHTTP {
		return f.Status
	}
	return 0
}
