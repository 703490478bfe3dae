package businessflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/rotalink/app/services"
	"github.com/amirphl/rotalink/config"
	"github.com/amirphl/rotalink/models"
	"github.com/amirphl/rotalink/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var jakarta = services.GeoLocation{
	Location: "Jakarta, Jakarta, Indonesia",
	MapLink:  "https://www.google.com/maps?q=-6.2088,106.8456",
}

func newRouteFlow(store *memoryStore, geo services.GeoResolver, pub services.VisitEventPublisher) CampaignRouteFlow {
	return NewCampaignRouteFlow(store, store, geo, pub, &config.RoutingConfig{TxTimeout: time.Second}, zap.NewNop())
}

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"

func TestCampaignRouteFlow_RoutesAndRecordsVisit(t *testing.T) {
	store := newMemoryStore()
	c := store.addCampaign("promo")
	a := store.assign(c, "https://wa.me/111", 3)
	store.assign(c, "https://wa.me/222", 1)
	pub := &recordingPublisher{}
	flow := newRouteFlow(store, fixedGeo{loc: jakarta}, pub)

	identity, err := flow.Route(context.Background(), "promo", "8.8.8.8", utils.ToPtr(iphoneUA))
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/111", identity)

	require.Equal(t, 1, store.visitCount())
	v := store.visits[0]
	assert.Equal(t, c.ID, v.CampaignID)
	assert.Equal(t, a.OperatorID, v.OperatorID)
	assert.Equal(t, a.ID, v.AssignmentID)
	assert.Equal(t, "8.8.8.8", v.IPAddress)
	assert.Equal(t, models.DeviceTypeMobile, v.Device)
	assert.Equal(t, jakarta.Location, v.Location)
	assert.Equal(t, jakarta.MapLink, v.Maps)
	assert.NotEqual(t, "", v.UUID.String())

	assert.Equal(t, map[string]int{"https://wa.me/111": 1, "https://wa.me/222": 0}, store.handles())

	require.Equal(t, 1, pub.count())
	assert.Equal(t, services.VisitEventType, pub.events[0].Type)
	assert.Equal(t, v.UUID, pub.events[0].VisitUUID)
	assert.Equal(t, a.OperatorUUID, pub.events[0].OperatorUUID)
}

func TestCampaignRouteFlow_TwoOperatorCycle(t *testing.T) {
	store := newMemoryStore()
	c := store.addCampaign("cycle")
	store.assign(c, "A", 3)
	store.assign(c, "B", 1)
	flow := newRouteFlow(store, fixedGeo{}, services.NoopVisitPublisher{})

	var got []string
	for range 4 {
		identity, err := flow.Route(context.Background(), "cycle", "8.8.8.8", nil)
		require.NoError(t, err)
		got = append(got, identity)
	}

	assert.Equal(t, []string{"A", "A", "A", "B"}, got)
	assert.Equal(t, map[string]int{"A": 0, "B": 0}, store.handles())
	assert.Equal(t, 4, store.visitCount())
}

func TestCampaignRouteFlow_LoneOperator(t *testing.T) {
	store := newMemoryStore()
	c := store.addCampaign("solo")
	store.assign(c, "only", 1)
	flow := newRouteFlow(store, fixedGeo{}, services.NoopVisitPublisher{})

	for range 3 {
		identity, err := flow.Route(context.Background(), "solo", "8.8.8.8", nil)
		require.NoError(t, err)
		assert.Equal(t, "only", identity)
		assert.Equal(t, map[string]int{"only": 0}, store.handles())
	}
	assert.Equal(t, 3, store.visitCount())
}

func TestCampaignRouteFlow_NoEligibleOperator(t *testing.T) {
	store := newMemoryStore()
	empty := store.addCampaign("empty")
	retired := store.addCampaign("retired")
	a := store.assign(retired, "gone", 2)
	store.inactive[a.OperatorID] = true
	flow := newRouteFlow(store, fixedGeo{}, services.NoopVisitPublisher{})

	for _, slug := range []string{"unknown", empty.Slug, retired.Slug} {
		t.Run(slug, func(t *testing.T) {
			identity, err := flow.Route(context.Background(), slug, "8.8.8.8", nil)
			assert.Empty(t, identity)
			assert.True(t, IsNoEligibleOperator(err))
			assert.False(t, IsRoutingExhausted(err))

			var be *BusinessError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, "NO_ELIGIBLE_OPERATOR", be.Code)
		})
	}
	assert.Equal(t, 0, store.visitCount())
}

func TestCampaignRouteFlow_RoutingExhausted(t *testing.T) {
	store := newMemoryStore()
	c := store.addCampaign("stuck")
	a := store.assign(c, "A", 1)
	b := store.assign(c, "B", 1)
	a.Handle = 1
	// B left the rotation after A had been served, A alone is saturated
	store.inactive[b.OperatorID] = true
	flow := newRouteFlow(store, fixedGeo{}, services.NoopVisitPublisher{})

	_, err := flow.Route(context.Background(), "stuck", "8.8.8.8", nil)
	assert.True(t, IsRoutingExhausted(err))
	assert.False(t, IsNoEligibleOperator(err))

	var be *BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "ROUTING_EXHAUSTED", be.Code)
	assert.Equal(t, 0, store.visitCount())
	assert.Equal(t, 1, store.handles()["A"])
}

func TestCampaignRouteFlow_StorageFailureRollsBack(t *testing.T) {
	store := newMemoryStore()
	c := store.addCampaign("flaky")
	store.assign(c, "A", 1)
	store.assign(c, "B", 1)
	store.failApply = errors.New("connection reset")
	pub := &recordingPublisher{}
	flow := newRouteFlow(store, fixedGeo{}, pub)

	identity, err := flow.Route(context.Background(), "flaky", "8.8.8.8", nil)
	assert.Empty(t, identity)
	assert.True(t, IsStorageFailure(err))

	var be *BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "ROUTING_STORAGE_FAILED", be.Code)

	assert.Equal(t, map[string]int{"A": 0, "B": 0}, store.handles())
	assert.Equal(t, 0, store.visitCount())
	assert.Equal(t, 0, pub.count())
}

func TestCampaignRouteFlow_DegradedGeoStillRecords(t *testing.T) {
	store := newMemoryStore()
	c := store.addCampaign("nogeo")
	store.assign(c, "A", 2)
	flow := newRouteFlow(store, fixedGeo{}, services.NoopVisitPublisher{})

	identity, err := flow.Route(context.Background(), "nogeo", "10.0.0.1", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", identity)

	require.Equal(t, 1, store.visitCount())
	assert.Empty(t, store.visits[0].Location)
	assert.Empty(t, store.visits[0].Maps)
	assert.Equal(t, models.DeviceTypeUnknown, store.visits[0].Device)
}

func TestCampaignRouteFlow_PublisherFailureIgnored(t *testing.T) {
	store := newMemoryStore()
	c := store.addCampaign("events")
	store.assign(c, "A", 2)
	flow := newRouteFlow(store, fixedGeo{}, &recordingPublisher{err: errors.New("broker down")})

	identity, err := flow.Route(context.Background(), "events", "8.8.8.8", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", identity)
	assert.Equal(t, 1, store.visitCount())
}

func TestCampaignRouteFlow_CallerCancellationDoesNotAbortCommit(t *testing.T) {
	store := newMemoryStore()
	c := store.addCampaign("gone")
	store.assign(c, "A", 2)
	flow := newRouteFlow(store, fixedGeo{loc: jakarta}, services.NoopVisitPublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	identity, err := flow.Route(ctx, "gone", "8.8.8.8", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", identity)
	require.Equal(t, 1, store.visitCount())
	// geolocation honours the caller context, the unit of work does not
	assert.Empty(t, store.visits[0].Location)
	assert.Equal(t, 1, store.handles()["A"])
}

func TestCampaignRouteFlow_ConcurrentVisits(t *testing.T) {
	store := newMemoryStore()
	c := store.addCampaign("rush")
	store.assign(c, "A", 3)
	store.assign(c, "B", 2)
	store.assign(c, "C", 1)
	flow := newRouteFlow(store, fixedGeo{}, services.NoopVisitPublisher{})

	const n = 200
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		counts = map[string]int{}
		errs   []error
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			identity, err := flow.Route(context.Background(), "rush", "8.8.8.8", nil)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			counts[identity]++
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, n, store.visitCount())

	// 33 full cycles of 6 plus two visits into the next one, both to A
	assert.Equal(t, map[string]int{"A": 101, "B": 66, "C": 33}, counts)
	assert.Equal(t, map[string]int{"A": 2, "B": 0, "C": 0}, store.handles())

	seen := map[string]bool{}
	for _, v := range store.visits {
		assert.False(t, seen[v.UUID.String()], "duplicate visit %s", v.UUID)
		seen[v.UUID.String()] = true
	}
}
