package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/rotalink/config"
	"github.com/amirphl/rotalink/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const googleMapsURL = "https://www.google.com/maps?q="

var geoLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rotalink",
		Name:      "geo_lookups_total",
		Help:      "Visitor geolocation lookups by result",
	},
	[]string{"result"},
)

// GeoLocation is the human readable location of a visitor.
// Both fields are empty when the lookup degraded.
type GeoLocation struct {
	Location string `json:"location"`
	MapLink  string `json:"maps"`
}

// GeoResolver resolves client IPs to locations. It never fails: any problem yields an empty GeoLocation.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) GeoLocation
}

// ipAPIResponse mirrors the fields read from an ip-api compatible endpoint
type ipAPIResponse struct {
	Status     string   `json:"status"`
	Country    string   `json:"country"`
	RegionName string   `json:"regionName"`
	City       string   `json:"city"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
}

// IPAPIGeoResolver looks visitors up on ip-api.com, caching results in Redis when available
type IPAPIGeoResolver struct {
	baseURL  string
	client   *http.Client
	rc       *redis.Client
	cacheTTL time.Duration
	prefix   string
	group    singleflight.Group
	logger   *zap.Logger
}

// NewIPAPIGeoResolver creates a resolver from configuration. rc may be nil.
func NewIPAPIGeoResolver(cfg *config.GeoConfig, cachePrefix string, rc *redis.Client, logger *zap.Logger) GeoResolver {
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > utils.MaxGeoLookupTimeout {
		timeout = utils.MaxGeoLookupTimeout
	}
	return &IPAPIGeoResolver{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/") + "/",
		client:   &http.Client{Timeout: timeout},
		rc:       rc,
		cacheTTL: cfg.CacheTTL,
		prefix:   cachePrefix,
		logger:   logger,
	}
}

// Resolve implements GeoResolver
func (g *IPAPIGeoResolver) Resolve(ctx context.Context, ip string) GeoLocation {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	addr = addr.Unmap()
	if err != nil || !isPublicAddr(addr) {
		geoLookups.WithLabelValues("skipped").Inc()
		return GeoLocation{}
	}
	key := addr.String()

	if loc, ok := g.cached(ctx, key); ok {
		geoLookups.WithLabelValues("cached").Inc()
		return loc
	}

	v, _, _ := g.group.Do(key, func() (any, error) {
		loc, err := g.lookup(ctx, key)
		if err != nil {
			return GeoLocation{}, err
		}
		g.store(ctx, key, loc)
		return loc, nil
	})
	loc := v.(GeoLocation)

	if loc == (GeoLocation{}) {
		geoLookups.WithLabelValues("degraded").Inc()
	} else {
		geoLookups.WithLabelValues("ok").Inc()
	}
	return loc
}

func (g *IPAPIGeoResolver) lookup(ctx context.Context, ip string) (GeoLocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+url.PathEscape(ip), nil)
	if err != nil {
		return GeoLocation{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("Geolocation lookup failed", zap.String("ip", ip), zap.Error(err))
		return GeoLocation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("Geolocation lookup returned non-200", zap.String("ip", ip), zap.Int("status", resp.StatusCode))
		return GeoLocation{}, fmt.Errorf("geolocation status %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		g.logger.Warn("Geolocation response is not valid JSON", zap.String("ip", ip), zap.Error(err))
		return GeoLocation{}, err
	}

	loc, ok := body.location()
	if !ok {
		g.logger.Debug("Geolocation unavailable for ip", zap.String("ip", ip), zap.String("status", body.Status))
		return GeoLocation{}, errors.New("geolocation unavailable")
	}
	return loc, nil
}

// location formats a successful response; ok is false unless status is success with coordinates
func (r ipAPIResponse) location() (GeoLocation, bool) {
	if r.Status != "success" || r.Lat == nil || r.Lon == nil {
		return GeoLocation{}, false
	}
	lat := strconv.FormatFloat(*r.Lat, 'f', -1, 64)
	lon := strconv.FormatFloat(*r.Lon, 'f', -1, 64)
	return GeoLocation{
		Location: strings.Join([]string{orDash(r.City), orDash(r.RegionName), orDash(r.Country)}, ", "),
		MapLink:  googleMapsURL + lat + "," + lon,
	}, true
}

func (g *IPAPIGeoResolver) cacheKey(ip string) string {
	return g.prefix + "geo:" + ip
}

func (g *IPAPIGeoResolver) cached(ctx context.Context, ip string) (GeoLocation, bool) {
	if g.rc == nil {
		return GeoLocation{}, false
	}
	raw, err := g.rc.Get(ctx, g.cacheKey(ip)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			g.logger.Warn("Geolocation cache read failed", zap.String("ip", ip), zap.Error(err))
		}
		return GeoLocation{}, false
	}
	var loc GeoLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		return GeoLocation{}, false
	}
	return loc, true
}

func (g *IPAPIGeoResolver) store(ctx context.Context, ip string, loc GeoLocation) {
	if g.rc == nil || g.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(loc)
	if err != nil {
		return
	}
	if err := g.rc.Set(ctx, g.cacheKey(ip), raw, g.cacheTTL).Err(); err != nil {
		g.logger.Warn("Geolocation cache write failed", zap.String("ip", ip), zap.Error(err))
	}
}

func isPublicAddr(addr netip.Addr) bool {
	return addr.IsValid() &&
		!addr.IsLoopback() &&
		!addr.IsPrivate() &&
		!addr.IsUnspecified() &&
		!addr.IsLinkLocalUnicast() &&
		!addr.IsMulticast()
}

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}

// NoopGeoResolver is used when geolocation is disabled
type NoopGeoResolver struct{}

// Resolve implements GeoResolver
func (NoopGeoResolver) Resolve(context.Context, string) GeoLocation { return GeoLocation{} }
