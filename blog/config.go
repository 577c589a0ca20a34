// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package blog

import (
	"fmt"
	"strings"

	"github.com/joeshaw/envdecode"

	"github.com/relabs-tech/fashionera/core/media"
)

// Config is the client configuration, read from the environment
type Config struct {
	APIURL   string `env:"FASHIONERA_API_URL,required"`
	LogLevel string `env:"FASHIONERA_LOG_LEVEL,default=info"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL,default=http://localhost:5173/auth/callback"`

	// AdminEmail and AdminPassword sign in an administrator password account
	AdminEmail    string `env:"FASHIONERA_ADMIN_EMAIL"`
	AdminPassword string `env:"FASHIONERA_ADMIN_PASSWORD"`

	// MediaDriver is "local", "s3" or empty for no cover uploads
	MediaDriver    string `env:"MEDIA_DRIVER"`
	MediaLocalDir  string `env:"MEDIA_LOCAL_DIR,default=./media"`
	MediaPublicURL string `env:"MEDIA_PUBLIC_URL"`
	AWSRegion      string `env:"AWS_REGION,default=eu-central-1"`
	AWSBucket      string `env:"AWS_BUCKET"`
	AWSAccessID    string `env:"AWS_ACCESS_KEY_ID"`
	AWSAccessKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
}

// ConfigFromEnv reads the configuration from the environment
func ConfigFromEnv() (Config, error) {
	var config Config
	if err := envdecode.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("cannot read configuration: %w", err)
	}
	return config, nil
}

// MediaConfiguration returns the media storage configuration
func (c Config) MediaConfiguration() media.Configuration {
	switch media.DriverType(strings.ToLower(c.MediaDriver)) {
	case media.DriverTypeLocal:
		return media.Configuration{
			DriverType: media.DriverTypeLocal,
			Local:      &media.LocalConfiguration{BasePath: c.MediaLocalDir, PublicPath: c.MediaPublicURL},
		}
	case media.DriverTypeAWSS3:
		return media.Configuration{
			DriverType: media.DriverTypeAWSS3,
			S3: &media.S3Configuration{
				AccessID:      c.AWSAccessID,
				AccessKey:     c.AWSAccessKey,
				AWSRegion:     c.AWSRegion,
				AWSBucketName: c.AWSBucket,
				KeyPrefix:     "fashionera/",
				Endpoint:      c.S3Endpoint,
				PublicBaseURL: c.MediaPublicURL,
			},
		}
	}
	return media.Configuration{DriverType: media.DriverType(c.MediaDriver)}
}
