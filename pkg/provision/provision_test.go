package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fako1024/hivemon/pkg/config"
	"github.com/stretchr/testify/require"
)

const testBody = "ssid=Foo&wifi_password=Bar&thingspeak_api=K1&callmebot_api=K2&phone=%2B420123"

func postForm(t *testing.T, s *Server, body string) *http.Response {
	return post(t, s, body, "application/x-www-form-urlencoded")
}

func post(t *testing.T, s *Server, body, contentType string) *http.Response {
	req, err := http.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.Handler().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestForm(t *testing.T) {
	s := New(config.NewFileStore(filepath.Join(t.TempDir(), "config.txt")))

	for _, path := range []string{"/", "/generate_204", "/index.html"} {
		resp, err := s.Handler().Test(httptestRequest(http.MethodGet, path), -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		for _, key := range config.Keys {
			require.Contains(t, string(body), fmt.Sprintf(`name="%s"`, key))
		}
	}
}

func TestSubmit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	s := New(config.NewFileStore(path))

	resp := postForm(t, s, testBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, confirmationPage, string(body))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "ssid=Foo\nwifi_password=Bar\nthingspeak_api=K1\ncallmebot_api=K2\nphone=+420123\n", string(data))

	cfg, err := config.NewFileStore(path).Load()
	require.NoError(t, err)
	require.Equal(t, "Foo", cfg.SSID)
	require.Equal(t, "+420123", cfg.Phone)

	select {
	case submitted := <-s.done:
		require.Equal(t, cfg, submitted)
	default:
		t.Fatalf("submission was not signaled")
	}
}

func TestSubmitWithoutFormContentType(t *testing.T) {
	for _, contentType := range []string{"", "text/plain"} {
		path := filepath.Join(t.TempDir(), "config.txt")
		s := New(config.NewFileStore(path))

		resp := post(t, s, testBody, contentType)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "ssid=Foo\nwifi_password=Bar\nthingspeak_api=K1\ncallmebot_api=K2\nphone=+420123\n", string(data))

		cfg, err := config.NewFileStore(path).Load()
		require.NoError(t, err)
		require.Equal(t, "Foo", cfg.SSID)
		require.Equal(t, "+420123", cfg.Phone)
	}

	// Malformed parts are ignored field by field
	path := filepath.Join(t.TempDir(), "config.txt")
	s := New(config.NewFileStore(path))
	resp := post(t, s, "ssid=OnlyThis&bogus=%ZZ&phone", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "ssid=OnlyThis\nwifi_password=\n"))
}

func TestSubmitMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	s := New(config.NewFileStore(path))

	resp := postForm(t, s, "ssid=OnlyThis&bogus=%ZZ&phone")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "ssid=OnlyThis\nwifi_password=\n"))
}

type failingStore struct{}

func (failingStore) Save(config.Configuration) error {
	return errors.New("disk full")
}

func TestSubmitStoreFailure(t *testing.T) {
	s := New(failingStore{})
	resp := postForm(t, s, testBody)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Empty(t, s.done)
}

type recordingAP struct {
	up, down int
}

func (a *recordingAP) Up(context.Context) error { a.up++; return nil }

func (a *recordingAP) Down() error { a.down++; return nil }

func TestRun(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	path := filepath.Join(t.TempDir(), "config.txt")
	ap := &recordingAP{}
	s := New(config.NewFileStore(path), WithEndpoint(addr), WithAccessPoint(ap), WithSettleDelay(0))

	type result struct {
		cfg config.Configuration
		err error
	}
	results := make(chan result, 1)
	go func() {
		cfg, err := s.Run(context.Background())
		results <- result{cfg, err}
	}()

	// Wait for the server to come up, then submit the form
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Post("http://"+addr+"/", "application/x-www-form-urlencoded", strings.NewReader(testBody))
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	select {
	case res := <-results:
		require.NoError(t, res.err)
		require.Equal(t, "Foo", res.cfg.SSID)
	case <-time.After(10 * time.Second):
		t.Fatalf("provisioning server did not return after submission")
	}
	require.Equal(t, 1, ap.up)
	require.Equal(t, 1, ap.down)
}

func TestRunCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(config.NewFileStore(filepath.Join(t.TempDir(), "config.txt")), WithEndpoint("127.0.0.1:0"))
	_, err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func httptestRequest(method, path string) *http.Request {
	req, _ := http.NewRequest(method, path, nil)
	return req
}
