package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeGCS struct {
	mu        sync.Mutex
	calls     []string
	uploaded  string
	objectHit bool
	failWrite bool
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodDelete:
		f.calls = append(f.calls, "delete")
		if !f.objectHit {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"error":{"code":404,"message":"No such object"}}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/upload/storage/v1/b/test-bucket/o"):
		f.calls = append(f.calls, "upload")
		if f.failWrite {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.uploaded = string(body)
		name := r.URL.Query().Get("name")
		fmt.Fprintf(w, `{"name":%q,"bucket":"test-bucket"}`, name)
	case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/acl/"):
		f.calls = append(f.calls, "acl:"+r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:])
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newTestUploader(t *testing.T, fake *fakeGCS, cfg Config) *Uploader {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cfg.Bucket = "test-bucket"
	up, err := New(client, cfg, nil)
	require.NoError(t, err)
	return up
}

func TestUploadFreshObject(t *testing.T) {
	fake := &fakeGCS{}
	up := newTestUploader(t, fake, Config{Prefix: "/exports/"})

	uri, err := up.Upload(context.Background(), "job_summary.json", []byte(`[{"Job_URL":"x"}]`))
	require.NoError(t, err)
	assert.Equal(t, "gs://test-bucket/exports/job_summary.json", uri)
	assert.Equal(t, []string{"delete", "upload"}, fake.calls)
	assert.Contains(t, fake.uploaded, `[{"Job_URL":"x"}]`)
}

func TestUploadReplacesAndShares(t *testing.T) {
	fake := &fakeGCS{objectHit: true}
	up := newTestUploader(t, fake, Config{ShareWith: "ops@example.com"})

	uri, err := up.Upload(context.Background(), "job_summary.json", []byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, "gs://test-bucket/job_summary.json", uri)
	require.Len(t, fake.calls, 3)
	assert.Equal(t, "delete", fake.calls[0])
	assert.Equal(t, "upload", fake.calls[1])
	assert.Contains(t, fake.calls[2], "user-ops@example.com")
}

func TestUploadWriteError(t *testing.T) {
	fake := &fakeGCS{failWrite: true}
	up := newTestUploader(t, fake, Config{})

	_, err := up.Upload(context.Background(), "job_summary.json", []byte(`[]`))
	require.Error(t, err)
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, Config{Bucket: "b"}, nil)
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	_, err = New(client, Config{}, nil)
	require.Error(t, err)

	up, err := New(client, Config{Bucket: "b"}, nil)
	require.NoError(t, err)
	_, err = up.Upload(context.Background(), " ", nil)
	require.Error(t, err)
}
