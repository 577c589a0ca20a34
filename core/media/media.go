// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Package media stores uploaded files, cover images first of all, outside of
// the api. There are two drivers: a local file system and AWS S3.
package media

import (
	"context"
	"fmt"
	"strings"
)

// Driver defines the interface for media storage
type Driver interface {
	// Upload stores data under key and returns the path or URL under which it is served
	Upload(ctx context.Context, key, contentType string, data []byte) (path string, err error)
	// Delete deletes the file with key
	Delete(ctx context.Context, key string) error
}

// DriverType represents the different types of drivers
type DriverType string

// DriverTypeLocal is the local filesystem implementation
const DriverTypeLocal DriverType = "local"

// DriverTypeAWSS3 is the AWS S3 implementation
const DriverTypeAWSS3 DriverType = "s3"

// None is used when there is no media storage
const None DriverType = ""

// Configuration contains the configuration for media storage
type Configuration struct {
	DriverType DriverType
	Local      *LocalConfiguration
	S3         *S3Configuration
}

// New returns the driver for the configuration, nil for None
func New(ctx context.Context, c Configuration) (Driver, error) {
	switch c.DriverType {
	case None:
		return nil, nil
	case DriverTypeLocal:
		if c.Local == nil {
			return nil, fmt.Errorf("local media storage requires a local configuration")
		}
		return NewLocalFilesystem(*c.Local)
	case DriverTypeAWSS3:
		if c.S3 == nil {
			return nil, fmt.Errorf("s3 media storage requires an s3 configuration")
		}
		return NewS3(ctx, *c.S3)
	}
	return nil, fmt.Errorf("unknown media driver '%s'", c.DriverType)
}

// checkKey rejects keys which could escape the storage root
func checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("'..' is not allowed in a key")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("key must be relative")
	}
	return nil
}
