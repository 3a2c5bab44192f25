package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	mu    sync.Mutex
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.input = in
	f.body = string(body)
	return &s3.PutObjectOutput{}, nil
}

func TestPutObject(t *testing.T) {
	t.Parallel()

	putter := &fakePutter{}
	store, err := New(putter, "exports")
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "plans/job-1.json", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	require.Equal(t, "s3://exports/plans/job-1.json", uri)
	require.Equal(t, "exports", aws.ToString(putter.input.Bucket))
	require.Equal(t, "plans/job-1.json", aws.ToString(putter.input.Key))
	require.Equal(t, "application/json", aws.ToString(putter.input.ContentType))
	require.Equal(t, `{}`, putter.body)
}

func TestPutObjectErrors(t *testing.T) {
	t.Parallel()

	store, err := New(&fakePutter{err: errors.New("denied")}, "exports")
	require.NoError(t, err)
	_, err = store.PutObject(context.Background(), "a.json", "", strings.NewReader("{}"))
	require.ErrorContains(t, err, "denied")

	_, err = store.PutObject(context.Background(), "", "", strings.NewReader("{}"))
	require.Error(t, err)

	_, err = New(nil, "exports")
	require.Error(t, err)
	_, err = New(&fakePutter{}, "")
	require.Error(t, err)
}

func TestPutObjectAgainstCompatibleEndpoint(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		path string
		body string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		path = r.URL.Path
		body = string(data)
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(server.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("key", "secret", ""),
	})
	store, err := New(client, "exports")
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "plans/job-2.json", "application/json", strings.NewReader(`{"ok":true}`))
	require.NoError(t, err)
	require.Equal(t, "s3://exports/plans/job-2.json", uri)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "/exports/plans/job-2.json", path)
	require.Contains(t, body, `{"ok":true}`)
}
