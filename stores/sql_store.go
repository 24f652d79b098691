package stores

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oarkflow/squealx"

	"github.com/oarkflow/permit"
)

// SQLStore implements permit.DataStore over a squealx DB. It also exposes
// the write helpers the CLI uses to seed a database from a Config.
type SQLStore struct {
	db *squealx.DB
}

func NewSQLStore(db *squealx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// ---- reads (DataStore) ----

func (s *SQLStore) FindResourceByID(ctx context.Context, id string) (*permit.Resource, error) {
	q := `SELECT id, space_id, kind, created_by, parent_id, public, locked, converted_proposal_id, bounty_created_by FROM resources WHERE id = :id`
	r, err := s.db.NamedQueryContext(ctx, q, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if !r.Next() {
		return nil, nil
	}
	return scanResource(r)
}

func (s *SQLStore) FindResourcesByIDs(ctx context.Context, ids []string) ([]*permit.Resource, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	clause, params := namedInClause(ids)
	q := `SELECT id, space_id, kind, created_by, parent_id, public, locked, converted_proposal_id, bounty_created_by FROM resources WHERE id IN (` + clause + `)`
	r, err := s.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out := make([]*permit.Resource, 0, len(ids))
	for r.Next() {
		res, err := scanResource(r)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func scanResource(r interface{ Scan(...any) error }) (*permit.Resource, error) {
	var id, spaceID, kind, createdBy string
	var parentID, convertedID, bountyCreatedBy any
	var public, locked any
	if err := r.Scan(&id, &spaceID, &kind, &createdBy, &parentID, &public, &locked, &convertedID, &bountyCreatedBy); err != nil {
		return nil, err
	}
	res := &permit.Resource{
		ID:        id,
		SpaceID:   spaceID,
		Kind:      permit.ResourceKind(kind),
		CreatedBy: createdBy,
		Public:    intToBool(public),
		Locked:    intToBool(locked),
	}
	if v, ok := parentID.(string); ok {
		res.ParentID = v
	}
	if v, ok := convertedID.(string); ok {
		res.ConvertedProposalID = v
	}
	if v, ok := bountyCreatedBy.(string); ok && v != "" {
		res.Bounty = &permit.BountyRef{CreatedBy: v}
	}
	return res, nil
}

func (s *SQLStore) FindSpaceRole(ctx context.Context, userID, spaceID string) (*permit.SpaceRoleRecord, error) {
	q := `SELECT id, user_id, space_id, is_admin, is_guest, created_at FROM space_roles WHERE user_id = :user_id AND space_id = :space_id`
	r, err := s.db.NamedQueryContext(ctx, q, map[string]any{"user_id": userID, "space_id": spaceID})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if !r.Next() {
		return nil, nil
	}
	var id, uid, sid string
	var isAdmin, isGuest, createdRaw any
	if err := r.Scan(&id, &uid, &sid, &isAdmin, &isGuest, &createdRaw); err != nil {
		return nil, err
	}
	return &permit.SpaceRoleRecord{
		ID:        id,
		UserID:    uid,
		SpaceID:   sid,
		IsAdmin:   intToBool(isAdmin),
		IsGuest:   intToBool(isGuest),
		CreatedAt: scanTime(createdRaw),
	}, nil
}

func (s *SQLStore) FindRoleMemberships(ctx context.Context, spaceRoleID string) ([]permit.RoleMembership, error) {
	q := `SELECT space_role_id, role_id FROM space_role_to_role WHERE space_role_id = :space_role_id`
	r, err := s.db.NamedQueryContext(ctx, q, map[string]any{"space_role_id": spaceRoleID})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out := make([]permit.RoleMembership, 0)
	for r.Next() {
		var m permit.RoleMembership
		if err := r.Scan(&m.SpaceRoleID, &m.RoleID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *SQLStore) FindGrantsForResource(ctx context.Context, resourceID string) ([]*permit.PermissionGrant, error) {
	byResource, err := s.FindGrantsForResources(ctx, []string{resourceID})
	if err != nil {
		return nil, err
	}
	return byResource[resourceID], nil
}

func (s *SQLStore) FindGrantsForResources(ctx context.Context, resourceIDs []string) (map[string][]*permit.PermissionGrant, error) {
	out := make(map[string][]*permit.PermissionGrant, len(resourceIDs))
	if len(resourceIDs) == 0 {
		return out, nil
	}
	clause, params := namedInClause(resourceIDs)
	q := `SELECT id, resource_id, public, role_id, space_id, user_id, level, operations_json, created_at FROM permission_grants WHERE resource_id IN (` + clause + `)`
	r, err := s.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	for r.Next() {
		var id, resourceID, level, opsJSON string
		var public, roleID, spaceID, userID, createdRaw any
		if err := r.Scan(&id, &resourceID, &public, &roleID, &spaceID, &userID, &level, &opsJSON, &createdRaw); err != nil {
			return nil, err
		}
		g := &permit.PermissionGrant{
			ID:         id,
			ResourceID: resourceID,
			Public:     intToBool(public),
			Level:      permit.PermissionLevel(level),
			CreatedAt:  scanTime(createdRaw),
		}
		if v, ok := roleID.(string); ok {
			g.RoleID = v
		}
		if v, ok := spaceID.(string); ok {
			g.SpaceID = v
		}
		if v, ok := userID.(string); ok {
			g.UserID = v
		}
		var ops []permit.Operation
		_ = json.Unmarshal([]byte(opsJSON), &ops)
		g.Operations = ops
		out[resourceID] = append(out[resourceID], g)
	}
	return out, nil
}

func (s *SQLStore) FindSpaceSubscriptionTier(ctx context.Context, spaceID string) (permit.SubscriptionTier, error) {
	q := `SELECT subscription_tier FROM spaces WHERE id = :id`
	r, err := s.db.NamedQueryContext(ctx, q, map[string]any{"id": spaceID})
	if err != nil {
		return "", err
	}
	defer r.Close()
	if !r.Next() {
		return "", nil
	}
	var tier string
	if err := r.Scan(&tier); err != nil {
		return "", err
	}
	return permit.SubscriptionTier(tier), nil
}

// ---- writes (seeding) ----

func (s *SQLStore) InsertSpace(ctx context.Context, id, name string, tier permit.SubscriptionTier) error {
	q := `INSERT INTO spaces(id, name, subscription_tier, created_at) VALUES(:id, :name, :subscription_tier, :created_at)`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{
		"id": id, "name": name, "subscription_tier": string(tier), "created_at": time.Now(),
	})
	return err
}

func (s *SQLStore) InsertResource(ctx context.Context, res *permit.Resource) error {
	bountyCreatedBy := ""
	if res.Bounty != nil {
		bountyCreatedBy = res.Bounty.CreatedBy
	}
	q := `INSERT INTO resources(id, space_id, kind, created_by, parent_id, public, locked, converted_proposal_id, bounty_created_by, created_at) VALUES(:id, :space_id, :kind, :created_by, :parent_id, :public, :locked, :converted_proposal_id, :bounty_created_by, :created_at)`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{
		"id":                    res.ID,
		"space_id":              res.SpaceID,
		"kind":                  string(res.Kind),
		"created_by":            res.CreatedBy,
		"parent_id":             res.ParentID,
		"public":                boolToInt(res.Public),
		"locked":                boolToInt(res.Locked),
		"converted_proposal_id": res.ConvertedProposalID,
		"bounty_created_by":     bountyCreatedBy,
		"created_at":            time.Now(),
	})
	return err
}

func (s *SQLStore) InsertSpaceRole(ctx context.Context, role *permit.SpaceRoleRecord) error {
	q := `INSERT INTO space_roles(id, user_id, space_id, is_admin, is_guest, created_at) VALUES(:id, :user_id, :space_id, :is_admin, :is_guest, :created_at)`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{
		"id":         role.ID,
		"user_id":    role.UserID,
		"space_id":   role.SpaceID,
		"is_admin":   boolToInt(role.IsAdmin),
		"is_guest":   boolToInt(role.IsGuest),
		"created_at": time.Now(),
	})
	return err
}

func (s *SQLStore) InsertRoleMembership(ctx context.Context, spaceRoleID, roleID string) error {
	q := `INSERT OR IGNORE INTO space_role_to_role(space_role_id, role_id) VALUES(:space_role_id, :role_id)`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{"space_role_id": spaceRoleID, "role_id": roleID})
	return err
}

func (s *SQLStore) InsertGrant(ctx context.Context, g *permit.PermissionGrant) error {
	ops, _ := json.Marshal(g.Operations)
	q := `INSERT INTO permission_grants(id, resource_id, public, role_id, space_id, user_id, level, operations_json, created_at) VALUES(:id, :resource_id, :public, :role_id, :space_id, :user_id, :level, :operations_json, :created_at)`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{
		"id":              g.ID,
		"resource_id":     g.ResourceID,
		"public":          boolToInt(g.Public),
		"role_id":         g.RoleID,
		"space_id":        g.SpaceID,
		"user_id":         g.UserID,
		"level":           string(g.Level),
		"operations_json": string(ops),
		"created_at":      time.Now(),
	})
	return err
}

// Seed loads a validated config into the database
func (s *SQLStore) Seed(ctx context.Context, cfg *permit.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, sp := range cfg.Spaces {
		if err := s.InsertSpace(ctx, sp.ID, sp.Name, sp.Tier); err != nil {
			return err
		}
	}
	for _, m := range cfg.Members {
		role := &permit.SpaceRoleRecord{
			ID:      m.SpaceRoleID,
			UserID:  m.UserID,
			SpaceID: m.SpaceID,
			IsAdmin: m.Admin,
			IsGuest: m.Guest,
		}
		if err := s.InsertSpaceRole(ctx, role); err != nil {
			return err
		}
		for _, roleID := range m.Roles {
			if err := s.InsertRoleMembership(ctx, m.SpaceRoleID, roleID); err != nil {
				return err
			}
		}
	}
	for _, res := range cfg.Resources {
		if err := s.InsertResource(ctx, res); err != nil {
			return err
		}
	}
	for _, g := range cfg.Grants {
		if err := s.InsertGrant(ctx, g); err != nil {
			return err
		}
	}
	return nil
}
