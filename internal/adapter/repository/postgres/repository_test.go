package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	repo "github.com/rkreddybogati/scalr/internal/adapter/repository/postgres"
	"github.com/rkreddybogati/scalr/internal/config"
	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/internal/webhook"
	"github.com/rkreddybogati/scalr/pkg/testhelper"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pg, err := testhelper.SetupPostgres(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pg.Teardown(ctx); err != nil {
			t.Logf("failed to teardown container: %v", err)
		}
	})

	db, err := gorm.Open(pgdriver.Open(pg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&repo.ServerModel{},
		&webhook.Endpoint{},
		&webhook.Subscription{},
		&webhook.SubscriptionEvent{},
		&webhook.SubscriptionFarm{},
		&webhook.SubscriptionEndpoint{},
		&webhook.DeliveryRecord{},
	))
	return db
}

func TestServerRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	db := setupDB(t)
	servers := repo.NewServerRepository(db, &config.Config{})

	rec := &server.Record{
		ServerID: "01HZX0000000000000000000A1",
		EnvID:    1,
		FarmID:   10,
		Platform: "ec2",
		Status:   server.StatusPending,
		AddedAt:  time.Now().UTC(),
	}
	rec.SetProperty(server.PropLaunchError, "no capacity")
	require.NoError(t, servers.Save(ctx, rec))

	t.Run("FindByID", func(t *testing.T) {
		fetched, err := servers.FindByID(ctx, rec.ServerID)
		require.NoError(t, err)
		assert.Equal(t, server.StatusPending, fetched.Status)
		assert.Equal(t, "no capacity", fetched.LaunchError())

		_, err = servers.FindByID(ctx, "missing")
		assert.ErrorContains(t, err, "not found")
	})

	t.Run("CountPendingExcludesSelf", func(t *testing.T) {
		other := &server.Record{
			ServerID: "01HZX0000000000000000000A2",
			Platform: "ec2",
			Status:   server.StatusPending,
			AddedAt:  time.Now().UTC(),
		}
		require.NoError(t, servers.Save(ctx, other))

		n, err := servers.CountPending(ctx, "ec2", rec.ServerID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = servers.CountPending(ctx, "gce", rec.ServerID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("ListByStatus", func(t *testing.T) {
		parked := &server.Record{
			ServerID: "01HZX0000000000000000000A3",
			Platform: "ec2",
			Status:   server.StatusPendingLaunch,
			AddedAt:  time.Now().UTC(),
		}
		require.NoError(t, servers.Save(ctx, parked))

		got, err := servers.ListByStatus(ctx, []server.Status{server.StatusPendingLaunch}, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, parked.ServerID, got[0].ServerID)
	})
}

func TestWebhookStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	db := setupDB(t)
	store := repo.NewWebhookStore(db)

	require.NoError(t, db.Create(&webhook.Endpoint{ID: 100, EnvID: 1, URL: "https://a.example.com", IsValid: true}).Error)
	require.NoError(t, db.Create(&webhook.Endpoint{ID: 101, EnvID: 1, URL: "https://b.example.com", IsValid: true}).Error)
	require.NoError(t, db.Create(&webhook.Subscription{ID: 1, EnvID: 1, AccountID: 2, Name: "ops"}).Error)
	require.NoError(t, db.Create(&webhook.SubscriptionEvent{SubscriptionID: 1, EventType: "HostUp"}).Error)
	require.NoError(t, db.Create(&webhook.SubscriptionFarm{SubscriptionID: 1, FarmID: 0}).Error)
	require.NoError(t, db.Create(&webhook.SubscriptionEndpoint{SubscriptionID: 1, EndpointID: 101, Position: 0}).Error)
	require.NoError(t, db.Create(&webhook.SubscriptionEndpoint{SubscriptionID: 1, EndpointID: 100, Position: 1}).Error)

	t.Run("FindByEvent", func(t *testing.T) {
		subs, err := store.FindByEvent(ctx, "HostUp", 10, 2, 1)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		require.Len(t, subs[0].Endpoints, 2)
		assert.Equal(t, int64(101), subs[0].Endpoints[0].ID)
		assert.Equal(t, int64(100), subs[0].Endpoints[1].ID)

		subs, err = store.FindByEvent(ctx, "HostDown", 10, 2, 1)
		require.NoError(t, err)
		assert.Empty(t, subs)
	})

	t.Run("DuplicateDeliveryRejected", func(t *testing.T) {
		first := &webhook.DeliveryRecord{ID: 1, EventID: "ev-1", EndpointID: 100, SubscriptionID: 1, EventType: "HostUp", Payload: "{}", Status: webhook.DeliveryPending}
		require.NoError(t, store.CreateDelivery(ctx, first))

		dup := &webhook.DeliveryRecord{ID: 2, EventID: "ev-1", EndpointID: 100, SubscriptionID: 1, EventType: "HostUp", Payload: "{}", Status: webhook.DeliveryPending}
		assert.Error(t, store.CreateDelivery(ctx, dup))
	})

	t.Run("FetchDueBumpsAttempts", func(t *testing.T) {
		due := &webhook.DeliveryRecord{ID: 3, EventID: "ev-2", EndpointID: 100, SubscriptionID: 1, EventType: "HostUp", Payload: "{}", Status: webhook.DeliveryPending}
		require.NoError(t, store.CreateDelivery(ctx, due))

		records, err := store.FetchDue(ctx, 10, 5)
		require.NoError(t, err)
		require.NotEmpty(t, records)

		var reloaded webhook.DeliveryRecord
		require.NoError(t, db.First(&reloaded, due.ID).Error)
		assert.Equal(t, 1, reloaded.Attempts)
	})

	t.Run("MarkDeliveredExcludesFromDue", func(t *testing.T) {
		require.NoError(t, store.MarkDelivered(ctx, 3, 200))

		records, err := store.FetchDue(ctx, 10, 5)
		require.NoError(t, err)
		for _, r := range records {
			assert.NotEqual(t, int64(3), r.ID)
		}
	})
}
