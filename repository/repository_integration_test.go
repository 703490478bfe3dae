package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/rotalink/app/services"
	businessflow "github.com/amirphl/rotalink/business_flow"
	"github.com/amirphl/rotalink/config"
	"github.com/amirphl/rotalink/models"
	"github.com/amirphl/rotalink/repository"
	testingutil "github.com/amirphl/rotalink/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func requireDB(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	if !testingutil.Available() {
		t.Skip("postgres is not reachable")
	}
}

func newRouteFlow(db *testingutil.TestDB) businessflow.CampaignRouteFlow {
	return businessflow.NewCampaignRouteFlow(
		repository.NewCampaignOperatorRepository(db.DB),
		repository.NewTransactor(db.DB),
		services.NoopGeoResolver{},
		services.NoopVisitPublisher{},
		&config.RoutingConfig{TxTimeout: 5 * time.Second},
		zap.NewNop(),
	)
}

func TestCampaignRouting_WeightedCycle(t *testing.T) {
	requireDB(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		alice, err := fixtures.CreateTestOperator("alice", "https://wa.me/111", models.OperatorStatusActive)
		require.NoError(t, err)
		bob, err := fixtures.CreateTestOperator("bob", "https://wa.me/222", models.OperatorStatusActive)
		require.NoError(t, err)
		_, _, err = fixtures.CreateTestCampaign("spring-sale", []*models.Operator{alice, bob}, []int{2, 1})
		require.NoError(t, err)

		flow := newRouteFlow(testDB)
		ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"

		var got []string
		for range 6 {
			target, err := flow.Route(ctx, "spring-sale", "10.0.0.1", &ua)
			require.NoError(t, err)
			got = append(got, target)
		}
		assert.Equal(t, []string{
			alice.Identity, alice.Identity, bob.Identity,
			alice.Identity, alice.Identity, bob.Identity,
		}, got)

		visits := repository.NewVisitRepository(testDB.DB)
		total, err := visits.Count(ctx, models.VisitFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(6), total)

		rows, err := visits.ListVisitors(ctx, 1, 10, 0)
		require.NoError(t, err)
		require.Len(t, rows, 6)
		assert.Equal(t, models.DeviceTypeMobile, rows[0].Device)
		return nil
	})
	require.NoError(t, err)
}

func TestCampaignRouting_ConcurrentVisitsKeepProportions(t *testing.T) {
	requireDB(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()

		alice, err := fixtures.CreateTestOperator("alice", "https://wa.me/111", models.OperatorStatusActive)
		require.NoError(t, err)
		bob, err := fixtures.CreateTestOperator("bob", "https://wa.me/222", models.OperatorStatusActive)
		require.NoError(t, err)
		campaign, _, err := fixtures.CreateTestCampaign("flash", []*models.Operator{alice, bob}, []int{2, 1})
		require.NoError(t, err)

		flow := newRouteFlow(testDB)

		const visitors = 30
		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			counts = map[string]int{}
			errs   []error
		)
		for range visitors {
			wg.Add(1)
			go func() {
				defer wg.Done()
				target, err := flow.Route(ctx, "flash", "10.0.0.2", nil)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return
				}
				counts[target]++
			}()
		}
		wg.Wait()

		require.Empty(t, errs)
		assert.Equal(t, 20, counts[alice.Identity])
		assert.Equal(t, 10, counts[bob.Identity])

		assignments, err := repository.NewCampaignOperatorRepository(testDB.DB).ListByCampaign(ctx, campaign.ID)
		require.NoError(t, err)
		for _, a := range assignments {
			assert.Zero(t, a.Handle, "cycle should be complete after a multiple of the total grade")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestCampaignRouting_Failures(t *testing.T) {
	requireDB(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		flow := newRouteFlow(testDB)

		_, err := flow.Route(ctx, "missing", "10.0.0.3", nil)
		assert.True(t, businessflow.IsNoEligibleOperator(err))

		idle, err := fixtures.CreateTestOperator("idle", "https://wa.me/333", models.OperatorStatusInactive)
		require.NoError(t, err)
		_, _, err = fixtures.CreateTestCampaign("idle-only", []*models.Operator{idle}, []int{3})
		require.NoError(t, err)

		_, err = flow.Route(ctx, "idle-only", "10.0.0.3", nil)
		assert.True(t, businessflow.IsNoEligibleOperator(err))

		visits, err := repository.NewVisitRepository(testDB.DB).Count(ctx, models.VisitFilter{})
		require.NoError(t, err)
		assert.Zero(t, visits)
		return nil
	})
	require.NoError(t, err)
}

func TestCampaignOperatorRepository_ResetAndCleanup(t *testing.T) {
	requireDB(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		repo := repository.NewCampaignOperatorRepository(testDB.DB)
		tx := repository.NewTransactor(testDB.DB)

		alice, err := fixtures.CreateTestOperator("alice", "https://wa.me/111", models.OperatorStatusActive)
		require.NoError(t, err)
		bob, err := fixtures.CreateTestOperator("bob", "https://wa.me/222", models.OperatorStatusActive)
		require.NoError(t, err)
		first, _, err := fixtures.CreateTestCampaign("first", []*models.Operator{alice, bob}, []int{3, 2})
		require.NoError(t, err)
		second, _, err := fixtures.CreateTestCampaign("second", []*models.Operator{alice}, []int{1})
		require.NoError(t, err)

		flow := newRouteFlow(testDB)
		_, err = flow.Route(ctx, "first", "10.0.0.4", nil)
		require.NoError(t, err)

		t.Run("CampaignIDsByOperator", func(t *testing.T) {
			ids, err := repo.CampaignIDsByOperator(ctx, alice.ID)
			require.NoError(t, err)
			assert.ElementsMatch(t, []uint{first.ID, second.ID}, ids)
		})

		t.Run("ListActiveBySlug", func(t *testing.T) {
			rows, err := repo.ListActiveBySlug(ctx, "first")
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, 1, rows[0].Handle)
			assert.Equal(t, alice.Identity, rows[0].Identity)
		})

		t.Run("ResetHandles", func(t *testing.T) {
			err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
				return repo.ResetHandles(txCtx, []uint{first.ID})
			})
			require.NoError(t, err)

			rows, err := repo.ListByCampaign(ctx, first.ID)
			require.NoError(t, err)
			for _, r := range rows {
				assert.Zero(t, r.Handle)
			}
		})

		t.Run("VisitsSurviveCampaignDelete", func(t *testing.T) {
			campaigns := repository.NewCampaignRepository(testDB.DB)
			require.NoError(t, repo.DeleteByCampaign(ctx, first.ID))
			require.NoError(t, campaigns.Delete(ctx, first.ID))

			total, err := repository.NewVisitRepository(testDB.DB).Count(ctx, models.VisitFilter{CampaignID: &first.ID})
			require.NoError(t, err)
			assert.Equal(t, int64(1), total)
		})
		return nil
	})
	require.NoError(t, err)
}
