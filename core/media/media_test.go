// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalUploadServeDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, err := NewLocalFilesystem(LocalConfiguration{BasePath: dir})
	require.NoError(t, err)

	path, err := f.Upload(ctx, "covers/fabric.png", "image/png", []byte("png bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/media/covers/fabric.png", path)

	data, err := os.ReadFile(filepath.Join(dir, "covers", "fabric.png"))
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))

	router := mux.NewRouter()
	f.Configure(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png bytes", rec.Body.String())

	require.NoError(t, f.Delete(ctx, "covers/fabric.png"))
	_, err = os.Stat(filepath.Join(dir, "covers", "fabric.png"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	require.NoError(t, f.Delete(ctx, "covers/fabric.png"))
}

func TestKeysCannotEscape(t *testing.T) {
	f, err := NewLocalFilesystem(LocalConfiguration{BasePath: t.TempDir()})
	require.NoError(t, err)
	for _, key := range []string{"", "../etc/passwd", "/abs", "a/../../b"} {
		_, err := f.Upload(context.Background(), key, "", []byte("x"))
		assert.Error(t, err, key)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	driver, err := New(ctx, Configuration{})
	require.NoError(t, err)
	assert.Nil(t, driver)

	_, err = New(ctx, Configuration{DriverType: DriverTypeLocal})
	assert.Error(t, err)

	driver, err = New(ctx, Configuration{DriverType: DriverTypeLocal, Local: &LocalConfiguration{BasePath: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalFilesystem{}, driver)

	_, err = New(ctx, Configuration{DriverType: "ftp"})
	assert.Error(t, err)

	_, err = New(ctx, Configuration{DriverType: DriverTypeAWSS3, S3: &S3Configuration{}})
	assert.Error(t, err, "bucket is mandatory")
}

func TestS3UploadToCompatibleStore(t *testing.T) {
	ctx := context.Background()
	var mutex sync.Mutex
	objects := map[string]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mutex.Lock()
		defer mutex.Unlock()
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = string(body)
			w.Header().Set("ETag", `"etag"`)
		case http.MethodDelete:
			delete(objects, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer server.Close()

	s, err := NewS3(ctx, S3Configuration{
		AccessID:      "id",
		AccessKey:     "key",
		AWSRegion:     "eu-central-1",
		AWSBucketName: "covers",
		KeyPrefix:     "test/",
		Endpoint:      server.URL,
		PublicBaseURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)

	path, err := s.Upload(ctx, "fabric.png", "image/png", []byte("png bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/test/fabric.png", path)

	mutex.Lock()
	stored := objects["/covers/test/fabric.png"]
	mutex.Unlock()
	assert.True(t, strings.HasSuffix(stored, "png bytes") || stored == "png bytes", stored)

	require.NoError(t, s.Delete(ctx, "fabric.png"))
	mutex.Lock()
	assert.Empty(t, objects)
	mutex.Unlock()
}
