// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package media

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/fashionera/core/logger"
)

// LocalConfiguration contains the configuration for the local filesystem
type LocalConfiguration struct {
	// BasePath is the folder the files are stored in
	BasePath string
	// PublicPath is the path prefix files are served under, default "/media"
	PublicPath string
}

// LocalFilesystem stores media in a local folder
type LocalFilesystem struct {
	baseFolder string
	publicPath string
}

// NewLocalFilesystem returns a new LocalFilesystem. The base folder is created if
// it does not exist.
func NewLocalFilesystem(c LocalConfiguration) (*LocalFilesystem, error) {
	if err := os.MkdirAll(c.BasePath, 0700); err != nil {
		return nil, err
	}
	publicPath := strings.TrimSuffix(c.PublicPath, "/")
	if publicPath == "" {
		publicPath = "/media"
	}
	return &LocalFilesystem{baseFolder: c.BasePath, publicPath: publicPath}, nil
}

// Upload implements Driver
func (f *LocalFilesystem) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	filePath := filepath.Join(f.baseFolder, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return "", err
	}
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return "", err
	}
	logger.FromContext(ctx).Infof("media: stored '%s' (%s, %d bytes)", key, contentType, len(data))
	return f.publicPath + "/" + key, nil
}

// Delete implements Driver
func (f *LocalFilesystem) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(f.baseFolder, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Configure adds the route serving stored files to the router
func (f *LocalFilesystem) Configure(router *mux.Router) {
	logger.Default().Debugln("media routes enabled")
	logger.Default().Debugf("  handle route: %s/{key} GET", f.publicPath)
	router.PathPrefix(f.publicPath + "/").Handler(http.HandlerFunc(f.handler)).Methods(http.MethodGet)
}

func (f *LocalFilesystem) handler(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, f.publicPath+"/")
	if err := checkKey(key); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.ServeFile(w, r, filepath.Join(f.baseFolder, filepath.FromSlash(key)))
}
