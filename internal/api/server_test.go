package api

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/datastore/testutil"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/fieldtrial"
	"github.com/regenpgc/trialbase/internal/logger"
)

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	cfg := ConfigFromSettings(&conf.Settings{})
	assert.Equal(t, DefaultConfig(), cfg)

	cfg = ConfigFromSettings(&conf.Settings{
		Debug: true,
		WebServer: conf.WebServerSettings{
			Listen: "127.0.0.1:9000", BodyLimit: "5M", AllowedOrigins: []string{"https://example.org"},
		},
	})
	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, "5M", cfg.BodyLimit)
	assert.Equal(t, []string{"https://example.org"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Debug)
	assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"no listen", func(c *Config) { c.Listen = "" }, "listen"},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }, "readTimeout"},
		{"negative write timeout", func(c *Config) { c.WriteTimeout = -time.Second }, "writeTimeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.field, errors.FieldOf(err))
		})
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	t.Parallel()
	db := testutil.OpenSQLite(t)
	log := logger.NewDiscardLogger()
	trials := fieldtrial.NewService(db, fieldtrial.WithLogger(log))

	srv, err := New(&conf.Settings{}, trials, WithLogger(log))
	require.NoError(t, err)
	assert.NotNil(t, srv.APIController())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/api/v2/health"
	resp, err := http.Get(url) //nolint:noctx // test request
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))

	// Image routes are not registered without an image service.
	resp2, err := http.Get("http://" + ln.Addr().String() + "/api/v2/images/img_1") //nolint:noctx // test request
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_BodyLimit(t *testing.T) {
	t.Parallel()
	db := testutil.OpenSQLite(t)
	trials := fieldtrial.NewService(db, fieldtrial.WithLogger(logger.NewDiscardLogger()))

	srv, err := New(&conf.Settings{WebServer: conf.WebServerSettings{BodyLimit: "1K"}}, trials,
		WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = srv.Serve(ctx, ln) }()

	body := make([]byte, 4096)
	resp, err := http.Post("http://"+ln.Addr().String()+"/api/v2/people", "application/json", //nolint:noctx // test request
		bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}
