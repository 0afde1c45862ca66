package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leafguard/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 records requests made against a path-style S3 endpoint
type fakeS3 struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	types    map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.bodies[r.URL.Path] = string(body)
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3Store(t *testing.T) (*S3Store, *fakeS3, string) {
	t.Helper()
	fake := &fakeS3{bodies: map[string]string{}, types: map[string]string{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store, err := NewS3Store(context.Background(), S3Options{
		Bucket:          "leaf-images",
		Region:          "eu-west-1",
		AccessKeyID:     "AKIDTEST",
		SecretAccessKey: "secret",
		Endpoint:        server.URL,
	})
	require.NoError(t, err)
	store.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return store, fake, server.URL
}

func TestNewS3Store_Validation(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Options{})
	assert.Nil(t, store)
	assert.Error(t, err)
}

func TestNewS3Store_Defaults(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Options{Bucket: "b", AccessKeyID: "a", SecretAccessKey: "s"})
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", store.region)
	assert.Equal(t, time.Hour, store.presignTTL)
	assert.Equal(t, "https://b.s3.us-east-1.amazonaws.com/uploads/1-x.png", store.publicURL("uploads/1-x.png"))
}

func TestS3Store_Put(t *testing.T) {
	store, fake, endpoint := newTestS3Store(t)

	obj, err := store.Put(context.Background(), "leaf photo.jpg", "image/jpeg", []byte("jpeg-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "uploads/1700000000000-leaf-photo.jpg", obj.Key)
	assert.Equal(t, endpoint+"/leaf-images/uploads/1700000000000-leaf-photo.jpg", obj.URL)
	assert.Equal(t, int64(10), obj.Size)

	path := "/leaf-images/uploads/1700000000000-leaf-photo.jpg"
	assert.Contains(t, fake.requests, "PUT "+path)
	assert.Contains(t, fake.bodies[path], "jpeg-bytes")
	assert.Equal(t, "image/jpeg", fake.types[path])
}

func TestS3Store_PresignedURL(t *testing.T) {
	store, fake, _ := newTestS3Store(t)

	raw, err := store.URL(context.Background(), "uploads/1700000000000-leaf.jpg")
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(parsed.Path, "/leaf-images/uploads/1700000000000-leaf.jpg"))
	assert.Equal(t, "3600", parsed.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
	assert.Empty(t, fake.requests, "presigning must not call S3")
}

func TestS3Store_Delete(t *testing.T) {
	store, fake, _ := newTestS3Store(t)

	require.NoError(t, store.Delete(context.Background(), "uploads/1-leaf.jpg"))
	assert.Contains(t, fake.requests, "DELETE /leaf-images/uploads/1-leaf.jpg")

	err := store.Delete(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
