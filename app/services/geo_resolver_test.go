package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirphl/rotalink/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGeoResolver(t *testing.T, handler http.HandlerFunc) (GeoResolver, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.GeoConfig{Enabled: true, BaseURL: srv.URL + "/json", Timeout: 200 * time.Millisecond}
	return NewIPAPIGeoResolver(cfg, "test:", nil, zap.NewNop()), &calls
}

func TestIPAPIGeoResolver_Success(t *testing.T) {
	resolver, calls := newTestGeoResolver(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/8.8.8.8", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","country":"Indonesia","regionName":"Jakarta","city":"Jakarta","lat":-6.2088,"lon":106.8456}`))
	})

	loc := resolver.Resolve(context.Background(), "8.8.8.8")
	assert.Equal(t, "Jakarta, Jakarta, Indonesia", loc.Location)
	assert.Equal(t, "https://www.google.com/maps?q=-6.2088,106.8456", loc.MapLink)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIPAPIGeoResolver_MissingParts(t *testing.T) {
	resolver, _ := newTestGeoResolver(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","country":"France","lat":48.85,"lon":2.35}`))
	})

	loc := resolver.Resolve(context.Background(), "1.1.1.1")
	assert.Equal(t, "-, -, France", loc.Location)
	assert.Equal(t, "https://www.google.com/maps?q=48.85,2.35", loc.MapLink)
}

func TestIPAPIGeoResolver_Degrades(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "fail status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
			},
		},
		{
			name: "success without coordinates",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"success","country":"Iran","lat":35.7}`))
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":`))
			},
		},
		{
			name: "slow upstream",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, _ := newTestGeoResolver(t, tt.handler)
			loc := resolver.Resolve(context.Background(), "9.9.9.9")
			assert.Equal(t, GeoLocation{}, loc)
		})
	}
}

func TestIPAPIGeoResolver_SkipsNonPublicAddresses(t *testing.T) {
	resolver, calls := newTestGeoResolver(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","lat":1,"lon":1}`))
	})

	for _, ip := range []string{"", "not-an-ip", "127.0.0.1", "10.1.2.3", "192.168.0.10", "::1", "0.0.0.0", "::ffff:10.0.0.1"} {
		assert.Equal(t, GeoLocation{}, resolver.Resolve(context.Background(), ip), ip)
	}
	require.Equal(t, int32(0), calls.Load())
}

func TestIPAPIGeoResolver_CanceledContext(t *testing.T) {
	resolver, _ := newTestGeoResolver(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","lat":1,"lon":1}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, GeoLocation{}, resolver.Resolve(ctx, "8.8.4.4"))
}

func TestNoopGeoResolver(t *testing.T) {
	assert.Equal(t, GeoLocation{}, NoopGeoResolver{}.Resolve(context.Background(), "8.8.8.8"))
}
