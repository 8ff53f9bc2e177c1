package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"zestro/domain"
)

const presenceTTL = 24 * time.Hour

// PresenceStore counts live websocket connections per user in Redis so that
// every realtime-svc replica sees the same picture.
type PresenceStore struct {
	rdb *redis.Client
}

func NewPresenceStore(rdb *redis.Client) *PresenceStore {
	return &PresenceStore{rdb: rdb}
}

func presenceKey(role domain.Role) string {
	return fmt.Sprintf("zestro:presence:%s", role)
}

func (s *PresenceStore) Online(ctx context.Context, userID string, role domain.Role) error {
	key := presenceKey(role)
	pipe := s.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, userID, 1)
	pipe.Expire(ctx, key, presenceTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *PresenceStore) Offline(ctx context.Context, userID string, role domain.Role) error {
	key := presenceKey(role)
	n, err := s.rdb.HIncrBy(ctx, key, userID, -1).Result()
	if err != nil {
		return err
	}
	if n <= 0 {
		return s.rdb.HDel(ctx, key, userID).Err()
	}
	return nil
}

func (s *PresenceStore) IsOnline(ctx context.Context, userID string, role domain.Role) (bool, error) {
	n, err := s.rdb.HGet(ctx, presenceKey(role), userID).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Counts returns the number of distinct online users per role.
func (s *PresenceStore) Counts(ctx context.Context) (map[domain.Role]int64, error) {
	counts := make(map[domain.Role]int64, 3)
	for _, role := range []domain.Role{domain.RoleCustomer, domain.RoleRestaurant, domain.RoleRider} {
		n, err := s.rdb.HLen(ctx, presenceKey(role)).Result()
		if err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, nil
}
