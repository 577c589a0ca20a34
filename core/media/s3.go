// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/relabs-tech/fashionera/core/logger"
)

// S3Configuration contains the configuration for the S3 driver
type S3Configuration struct {
	AccessID      string
	AccessKey     string
	AWSRegion     string
	AWSBucketName string
	// KeyPrefix is prepended to every key
	KeyPrefix string
	// Endpoint overrides the AWS endpoint, for S3 compatible stores. Requests
	// then use path style addressing.
	Endpoint string
	// PublicBaseURL is the URL files are served under. Default is the upload location.
	PublicBaseURL string
}

// S3 is the implementation of the Driver for AWS S3
type S3 struct {
	client        *s3.Client
	uploader      *manager.Uploader
	bucket        string
	baseKeyName   string
	publicBaseURL string
}

// NewS3 returns a new S3
func NewS3(ctx context.Context, c S3Configuration) (*S3, error) {
	if c.AWSBucketName == "" {
		return nil, fmt.Errorf("AWSBucketName must not be empty")
	}

	options := []func(*config.LoadOptions) error{config.WithRegion(c.AWSRegion)}
	if c.AccessID != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessID, c.AccessKey, "")))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.EndpointResolver = s3.EndpointResolverFromURL(c.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Default().Debugln("media S3 enabled")
	return &S3{
		client:        client,
		uploader:      manager.NewUploader(client),
		bucket:        c.AWSBucketName,
		baseKeyName:   c.KeyPrefix,
		publicBaseURL: strings.TrimSuffix(c.PublicBaseURL, "/"),
	}, nil
}

// Upload implements Driver
func (s *S3) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.baseKeyName + key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to upload file, %w", err)
	}
	logger.FromContext(ctx).Infof("media: uploaded '%s' to bucket %s", s.baseKeyName+key, s.bucket)
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + s.baseKeyName + key, nil
	}
	return out.Location, nil
}

// Delete implements Driver
func (s *S3) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.baseKeyName + key),
	})
	if err != nil {
		logger.FromContext(ctx).WithError(err).Errorf("could not delete %s", s.baseKeyName+key)
	}
	return err
}
