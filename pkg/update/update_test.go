package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPUpdate(t *testing.T) {
	artifact := []byte("#!/bin/sh\necho v2\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(artifact)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "hivemon")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho v1\n"), 0750))

	u := NewHTTP(srv.URL, path, nil)
	u.Timeout = time.Second

	updated, err := u.Check(context.Background())
	require.NoError(t, err)
	require.True(t, updated)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, artifact, data)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0750), fi.Mode().Perm())

	// Second check finds nothing new
	updated, err = u.Check(context.Background())
	require.NoError(t, err)
	require.False(t, updated)
}

func TestHTTPUpdateFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "hivemon")
	u := NewHTTP(srv.URL, path, nil)
	u.Timeout = time.Second

	updated, err := u.Check(context.Background())
	require.Error(t, err)
	require.False(t, updated)
	require.NoFileExists(t, path)

	updated, err = Nop{}.Check(context.Background())
	require.NoError(t, err)
	require.False(t, updated)
}
