package ukgrid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/intensity", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"intensity":{"forecast":183,"actual":190,"index":"moderate"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	reading, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 183, reading.Forecast, 0.001)
	assert.InDelta(t, 190, reading.Actual, 0.001)
	assert.Equal(t, "moderate", reading.Index)
}

func TestCurrentNullActual(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"intensity":{"forecast":120,"actual":null,"index":"low"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	reading, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 120, reading.Forecast, 0.001)
	assert.Zero(t, reading.Actual)
}

func TestCurrentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Current(context.Background())
	assert.ErrorContains(t, err, "status 500")
}

func TestCurrentEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Current(context.Background())
	assert.Error(t, err)
}

func TestCurrentMissingForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"intensity":{"forecast":null,"index":"unknown"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Current(context.Background())
	assert.Error(t, err)
}

func TestCurrentTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 10*time.Millisecond)
	_, err := c.Current(context.Background())
	assert.Error(t, err)
}

func TestWithBaseURLOption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"intensity":{"forecast":50,"index":"very low"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("http://unused.invalid", 5*time.Second, WithBaseURL(srv.URL), WithRateLimit(100))
	reading, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 50, reading.Forecast, 0.001)
}
