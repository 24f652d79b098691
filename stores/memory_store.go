package stores

import (
	"context"
	"sync"

	"github.com/oarkflow/permit"
)

// MemoryStore implements permit.DataStore in memory for tests and demos.
// It also implements permit.Seeder so a Config can populate it directly.
type MemoryStore struct {
	mu          sync.RWMutex
	resources   map[string]*permit.Resource
	tiers       map[string]permit.SubscriptionTier
	roles       map[string]*permit.SpaceRoleRecord // keyed by userID|spaceID
	memberships map[string][]permit.RoleMembership // keyed by spaceRoleID
	grants      map[string][]*permit.PermissionGrant
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resources:   make(map[string]*permit.Resource),
		tiers:       make(map[string]permit.SubscriptionTier),
		roles:       make(map[string]*permit.SpaceRoleRecord),
		memberships: make(map[string][]permit.RoleMembership),
		grants:      make(map[string][]*permit.PermissionGrant),
	}
}

func roleKey(userID, spaceID string) string { return userID + "|" + spaceID }

// ---- Seeder ----

func (s *MemoryStore) AddSpace(id string, tier permit.SubscriptionTier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[id] = tier
}

func (s *MemoryStore) AddSpaceRole(role *permit.SpaceRoleRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[roleKey(role.UserID, role.SpaceID)] = role
}

func (s *MemoryStore) AssignRole(spaceRoleID, roleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[spaceRoleID] = append(s.memberships[spaceRoleID], permit.RoleMembership{
		SpaceRoleID: spaceRoleID,
		RoleID:      roleID,
	})
}

func (s *MemoryStore) AddResource(res *permit.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[res.ID] = res
}

func (s *MemoryStore) AddGrant(grant *permit.PermissionGrant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grant.ResourceID] = append(s.grants[grant.ResourceID], grant)
}

func (s *MemoryStore) RemoveResource(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resources, id)
	delete(s.grants, id)
}

// ---- DataStore ----

func (s *MemoryStore) FindResourceByID(ctx context.Context, id string) (*permit.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resources[id], nil
}

func (s *MemoryStore) FindResourcesByIDs(ctx context.Context, ids []string) ([]*permit.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*permit.Resource, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.resources[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindSpaceRole(ctx context.Context, userID, spaceID string) (*permit.SpaceRoleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles[roleKey(userID, spaceID)], nil
}

func (s *MemoryStore) FindRoleMemberships(ctx context.Context, spaceRoleID string) ([]permit.RoleMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]permit.RoleMembership(nil), s.memberships[spaceRoleID]...), nil
}

func (s *MemoryStore) FindGrantsForResource(ctx context.Context, resourceID string) ([]*permit.PermissionGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*permit.PermissionGrant(nil), s.grants[resourceID]...), nil
}

func (s *MemoryStore) FindGrantsForResources(ctx context.Context, resourceIDs []string) (map[string][]*permit.PermissionGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]*permit.PermissionGrant, len(resourceIDs))
	for _, id := range resourceIDs {
		if gs, ok := s.grants[id]; ok {
			out[id] = append([]*permit.PermissionGrant(nil), gs...)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindSpaceSubscriptionTier(ctx context.Context, spaceID string) (permit.SubscriptionTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tiers[spaceID], nil
}
