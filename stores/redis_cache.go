package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oarkflow/permit"
)

// RedisCachedStore decorates a DataStore with a Redis cache for the two
// lookups that dominate evaluation traffic: space roles and subscription
// tiers. All other reads pass through. A cached "not a member" result is
// stored as an empty payload so negative lookups are cached too.
type RedisCachedStore struct {
	inner  permit.DataStore
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCachedStore(inner permit.DataStore, client *redis.Client, ttl time.Duration) *RedisCachedStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisCachedStore{inner: inner, client: client, ttl: ttl}
}

func (r *RedisCachedStore) roleKey(userID, spaceID string) string {
	return fmt.Sprintf("spacerole:%s:%s", spaceID, userID)
}

func (r *RedisCachedStore) tierKey(spaceID string) string {
	return fmt.Sprintf("spacetier:%s", spaceID)
}

func (r *RedisCachedStore) FindSpaceRole(ctx context.Context, userID, spaceID string) (*permit.SpaceRoleRecord, error) {
	key := r.roleKey(userID, spaceID)
	if raw, err := r.client.Get(ctx, key).Result(); err == nil {
		if raw == "" {
			return nil, nil
		}
		var role permit.SpaceRoleRecord
		if err := json.Unmarshal([]byte(raw), &role); err == nil {
			return &role, nil
		}
	}
	role, err := r.inner.FindSpaceRole(ctx, userID, spaceID)
	if err != nil {
		return nil, err
	}
	payload := ""
	if role != nil {
		if b, err := json.Marshal(role); err == nil {
			payload = string(b)
		}
	}
	_ = r.client.Set(ctx, key, payload, r.ttl).Err()
	return role, nil
}

func (r *RedisCachedStore) FindSpaceSubscriptionTier(ctx context.Context, spaceID string) (permit.SubscriptionTier, error) {
	key := r.tierKey(spaceID)
	if raw, err := r.client.Get(ctx, key).Result(); err == nil && raw != "" {
		return permit.SubscriptionTier(raw), nil
	}
	tier, err := r.inner.FindSpaceSubscriptionTier(ctx, spaceID)
	if err != nil {
		return "", err
	}
	if tier != "" {
		_ = r.client.Set(ctx, key, string(tier), r.ttl).Err()
	}
	return tier, nil
}

// Invalidate drops the cached membership for one user/space pair, for use
// after membership writes elsewhere in the application.
func (r *RedisCachedStore) Invalidate(ctx context.Context, userID, spaceID string) error {
	return r.client.Del(ctx, r.roleKey(userID, spaceID), r.tierKey(spaceID)).Err()
}

func (r *RedisCachedStore) FindResourceByID(ctx context.Context, id string) (*permit.Resource, error) {
	return r.inner.FindResourceByID(ctx, id)
}

func (r *RedisCachedStore) FindResourcesByIDs(ctx context.Context, ids []string) ([]*permit.Resource, error) {
	return r.inner.FindResourcesByIDs(ctx, ids)
}

func (r *RedisCachedStore) FindRoleMemberships(ctx context.Context, spaceRoleID string) ([]permit.RoleMembership, error) {
	return r.inner.FindRoleMemberships(ctx, spaceRoleID)
}

func (r *RedisCachedStore) FindGrantsForResource(ctx context.Context, resourceID string) ([]*permit.PermissionGrant, error) {
	return r.inner.FindGrantsForResource(ctx, resourceID)
}

func (r *RedisCachedStore) FindGrantsForResources(ctx context.Context, resourceIDs []string) (map[string][]*permit.PermissionGrant, error) {
	return r.inner.FindGrantsForResources(ctx, resourceIDs)
}
