package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zestro/domain"
)

var (
	thali = domain.MenuItem{ID: "m1", RestaurantID: "rest-1", Name: "Thali", Price: decimal.NewFromInt(100)}
	lassi = domain.MenuItem{ID: "m2", RestaurantID: "rest-1", Name: "Lassi", Price: decimal.RequireFromString("50.50")}
	papad = domain.MenuItem{ID: "m3", RestaurantID: "rest-1", Name: "Papad", Price: decimal.NewFromInt(20)}
	pizza = domain.MenuItem{ID: "p1", RestaurantID: "rest-2", Name: "Pizza", Price: decimal.NewFromInt(300)}
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func openStore(t *testing.T, rdb *redis.Client, identityID string) *Store {
	t.Helper()
	s, err := Open(context.Background(), rdb, identityID)
	require.NoError(t, err)
	return s
}

func TestStore_AddAndTotal(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	s := openStore(t, rdb, "cust-1")

	for _, item := range []domain.MenuItem{thali, thali, lassi, papad, papad, papad} {
		added, err := s.Add(ctx, item, "rest-1", nil)
		require.NoError(t, err)
		assert.True(t, added)
	}

	snap := s.Snapshot()
	assert.Equal(t, "rest-1", snap.RestaurantID)
	require.Len(t, snap.Lines, 3)
	assert.Equal(t, 2, snap.Lines[0].Quantity)
	assert.Equal(t, 6, s.Count())
	assert.True(t, snap.Total().Equal(decimal.RequireFromString("310.5")), snap.Total().String())
}

func TestStore_OtherRestaurant(t *testing.T) {
	tests := []struct {
		name       string
		confirm    ConfirmFunc
		wantAdded  bool
		wantRest   string
		wantCount  int
		wantItemID string
	}{
		{name: "no confirm keeps cart", confirm: nil, wantRest: "rest-1", wantCount: 2, wantItemID: "m1"},
		{name: "declined keeps cart", confirm: func(string, string) bool { return false }, wantRest: "rest-1", wantCount: 2, wantItemID: "m1"},
		{name: "confirmed replaces cart", confirm: func(string, string) bool { return true }, wantAdded: true, wantRest: "rest-2", wantCount: 1, wantItemID: "p1"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			_, rdb := setupRedis(t)
			ctx := context.Background()
			s := openStore(t, rdb, "cust-1")
			_, err := s.Add(ctx, thali, "rest-1", nil)
			require.NoError(t, err)
			_, err = s.Add(ctx, thali, "rest-1", nil)
			require.NoError(t, err)

			added, err := s.Add(ctx, pizza, "rest-2", testCase.confirm)

			require.NoError(t, err)
			assert.Equal(t, testCase.wantAdded, added)
			snap := s.Snapshot()
			assert.Equal(t, testCase.wantRest, snap.RestaurantID)
			assert.Equal(t, testCase.wantCount, s.Count())
			assert.Equal(t, testCase.wantItemID, snap.Lines[0].Item.ID)
		})
	}
}

func TestStore_QuantityAndRemove(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	s := openStore(t, rdb, "cust-1")
	_, err := s.Add(ctx, thali, "rest-1", nil)
	require.NoError(t, err)
	_, err = s.Add(ctx, lassi, "rest-1", nil)
	require.NoError(t, err)

	require.NoError(t, s.SetQuantity(ctx, "m1", 4))
	assert.Equal(t, 5, s.Count())

	// unknown item is ignored
	require.NoError(t, s.SetQuantity(ctx, "nope", 3))
	assert.Equal(t, 5, s.Count())

	require.NoError(t, s.SetQuantity(ctx, "m2", 0))
	assert.Len(t, s.Snapshot().Lines, 1)

	require.NoError(t, s.Remove(ctx, "m1"))
	snap := s.Snapshot()
	assert.True(t, snap.Empty())
	assert.Empty(t, snap.RestaurantID)
	assert.Equal(t, 0, s.Count())
}

func TestStore_CountRoundTrip(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	s := openStore(t, rdb, "cust-1")

	_, err := s.Add(ctx, thali, "rest-1", nil)
	require.NoError(t, err)
	_, err = s.Add(ctx, lassi, "rest-1", nil)
	require.NoError(t, err)
	require.NoError(t, s.SetQuantity(ctx, "m2", 3))

	reopened := openStore(t, rdb, "cust-1")
	assert.Equal(t, s.Count(), reopened.Count())
	assert.Equal(t, 4, reopened.Count())
	assert.True(t, s.Snapshot().Total().Equal(reopened.Snapshot().Total()))
}

func TestStore_ScopedPerIdentity(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	alice := openStore(t, rdb, "cust-1")
	_, err := alice.Add(ctx, thali, "rest-1", nil)
	require.NoError(t, err)

	bob := openStore(t, rdb, "cust-2")
	assert.Equal(t, 0, bob.Count())

	require.NoError(t, alice.Discard(ctx))
	assert.Equal(t, 0, alice.Count())
	assert.False(t, mr.Exists(Key("cust-1")))
}

func TestStore_WatchConvergesInstances(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tabA := openStore(t, rdb, "cust-1")
	tabB := openStore(t, rdb, "cust-1")
	require.NoError(t, tabB.Watch(ctx))

	counts := make(chan int, 8)
	tabB.OnChange(func(n int) { counts <- n })

	_, err := tabA.Add(ctx, thali, "rest-1", nil)
	require.NoError(t, err)
	_, err = tabA.Add(ctx, papad, "rest-1", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return tabB.Count() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.NotEmpty(t, counts)

	require.NoError(t, tabA.Clear(ctx))
	require.Eventually(t, func() bool { return tabB.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStore_FailedWriteLeavesState(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	s := openStore(t, rdb, "cust-1")
	_, err := s.Add(ctx, thali, "rest-1", nil)
	require.NoError(t, err)

	mr.SetError("READONLY")
	_, err = s.Add(ctx, lassi, "rest-1", nil)

	assert.Error(t, err)
	assert.Equal(t, 1, s.Count())
	mr.SetError("")
}
