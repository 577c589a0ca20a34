// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Package search filters mirrored collections for display
package search

import (
	"strings"
)

// Field extracts one searchable text field of T
type Field[T any] func(T) string

// Filter returns the items where any of the fields contains keyword, case
// insensitive. Only the empty keyword matches everything, whitespace is part of
// the keyword. The result is always a new slice; items is never modified.
func Filter[T any](items []T, keyword string, fields ...Field[T]) []T {
	keyword = strings.ToLower(keyword)
	result := make([]T, 0, len(items))
	if keyword == "" {
		return append(result, items...)
	}
	for _, item := range items {
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field(item)), keyword) {
				result = append(result, item)
				break
			}
		}
	}
	return result
}

// Where returns the items for which match returns true, as a new slice
func Where[T any](items []T, match func(T) bool) []T {
	result := make([]T, 0, len(items))
	for _, item := range items {
		if match(item) {
			result = append(result, item)
		}
	}
	return result
}
