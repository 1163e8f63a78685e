package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.Retries = 2
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	return cfg
}

func TestReadLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.css")
	require.NoError(t, os.WriteFile(path, []byte("body{}"), 0o644))

	l := NewLoader(testConfig(), nil)
	data, err := l.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(data))

	data, err = l.Read(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(data))
}

func TestReadMissingFile(t *testing.T) {
	l := NewLoader(testConfig(), nil)
	_, err := l.Read(context.Background(), filepath.Join(t.TempDir(), "missing.js"))
	assert.ErrorIs(t, err, ErrUnreadableSource)

	_, err = l.Read(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrUnreadableSource)
}

func TestReadRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "websmith/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("ads.\ntracker.\n"))
	}))
	defer srv.Close()

	data, err := NewLoader(testConfig(), nil).Read(context.Background(), srv.URL+"/list.txt")
	require.NoError(t, err)
	assert.Equal(t, "ads.\ntracker.\n", string(data))
}

func TestReadRemoteRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	data, err := NewLoader(testConfig(), nil).Read(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestReadRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewLoader(testConfig(), nil).Read(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUnreadableSource)
}

func TestReadRemoteTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxBytes = 16
	_, err := NewLoader(cfg, nil).Read(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUnreadableSource)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestReadRemoteStopsAtLimit(t *testing.T) {
	const endless = 1 << 30
	var written atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := make([]byte, 32<<10)
		for written.Load() < endless {
			n, err := w.Write(chunk)
			written.Add(int64(n))
			if err != nil {
				return
			}
		}
	}))

	cfg := testConfig()
	cfg.MaxBytes = 64 << 10
	_, err := NewLoader(cfg, nil).Read(context.Background(), srv.URL)
	srv.Close()

	assert.ErrorIs(t, err, ErrTooLarge)
	// The client hung up long before the body ended.
	assert.Less(t, written.Load(), int64(endless/4))
}

func TestReadLocalFileTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.txt")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o644))

	cfg := testConfig()
	cfg.MaxBytes = 16
	_, err := NewLoader(cfg, nil).Read(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnreadableSource)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://a.com/x"))
	assert.True(t, IsRemote("HTTP://a.com"))
	assert.False(t, IsRemote("/tmp/a.css"))
	assert.False(t, IsRemote("file:///tmp/a.css"))
}
