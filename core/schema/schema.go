// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Package schema validates JSON documents, request bodies mostly, against JSON schemas
package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/xeipuuv/gojsonschema"
)

// Validator is a utility to validate JSON documents against a set of schemas
type Validator struct {
	schemaValidators map[string]*gojsonschema.Schema
}

// ValidationError lists everything wrong with a document
type ValidationError struct {
	SchemaID string
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.SchemaID + ": " + strings.Join(e.Problems, "; ")
}

// NewValidatorFromFS creates a new Validator using schemas from fsys. Json files
// from the root are used as top level schemas, json files in refs/ as references.
// The refs folder is optional.
func NewValidatorFromFS(fsys fs.FS) (*Validator, error) {

	readDir := func(dir string) ([]string, error) {
		var strs []string
		files, err := fs.ReadDir(fsys, dir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			fullPath := f.Name()
			if dir != "." {
				fullPath = dir + "/" + f.Name()
			}
			str, err := fs.ReadFile(fsys, fullPath)
			if err != nil {
				return nil, fmt.Errorf("cannot read file '%s': %w", fullPath, err)
			}
			strs = append(strs, string(str))
		}
		return strs, nil
	}

	schemas, err := readDir(".")
	if err != nil {
		return nil, fmt.Errorf("cannot read schemas: %w", err)
	}
	refs, err := readDir("refs")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cannot read refs: %w", err)
	}
	return NewValidator(schemas, refs)
}

// NewValidator creates a new Validator using schemas for the top level JSON schemas and refs
// for refs that may be referenced in the top level schemas. Top level schemas cannot reference each
// other. Every top level schema needs an $id, which is the id to validate against.
func NewValidator(schemas []string, refs []string) (*Validator, error) {
	type schema struct {
		ID string `json:"$id"`
	}
	validator := Validator{schemaValidators: make(map[string]*gojsonschema.Schema)}
	for _, str := range schemas {
		s := schema{}
		if err := json.Unmarshal([]byte(str), &s); err != nil {
			return nil, fmt.Errorf("parse error '%v' in schema: '%s'", err, str)
		}
		if s.ID == "" {
			return nil, fmt.Errorf("schema does not contain $id: '%s'", str)
		}
		sl := gojsonschema.NewSchemaLoader()
		for _, ref := range refs {
			if err := sl.AddSchemas(gojsonschema.NewStringLoader(ref)); err != nil {
				return nil, fmt.Errorf("cannot add ref for %s: %w", s.ID, err)
			}
		}
		compiled, err := sl.Compile(gojsonschema.NewStringLoader(str))
		if err != nil {
			return nil, fmt.Errorf("cannot compile schema %s: %w", s.ID, err)
		}
		validator.schemaValidators[s.ID] = compiled
	}
	return &validator, nil
}

// HasSchema returns true if schemaID is known
func (v *Validator) HasSchema(schemaID string) bool {
	_, ok := v.schemaValidators[schemaID]
	return ok
}

// Schemas returns the ids of all known schemas, sorted
func (v *Validator) Schemas() []string {
	ids := make([]string, 0, len(v.schemaValidators))
	for id := range v.schemaValidators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ValidateBytes validates the given JSON document against schemaID. A
// *ValidationError is returned for invalid documents.
func (v *Validator) ValidateBytes(document []byte, schemaID string) error {
	return v.validate(gojsonschema.NewBytesLoader(document), schemaID)
}

func (v *Validator) validate(loader gojsonschema.JSONLoader, schemaID string) error {
	compiled, ok := v.schemaValidators[schemaID]
	if !ok {
		return fmt.Errorf("there is no schema %s", schemaID)
	}
	result, err := compiled.Validate(loader)
	if err != nil {
		// not even JSON
		return &ValidationError{SchemaID: schemaID, Problems: []string{err.Error()}}
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return &ValidationError{SchemaID: schemaID, Problems: problems}
	}
	return nil
}
