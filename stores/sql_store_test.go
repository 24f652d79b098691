package stores

import (
	"context"
	"database/sql"
	"testing"

	"github.com/oarkflow/squealx"
	_ "modernc.org/sqlite"

	"github.com/oarkflow/permit"
)

const (
	sqlSpaceID    = "3f0e6a3e-9f5a-4b2e-8c47-0f4a1d2b3c4d"
	sqlUserID     = "0d9e8f7a-6b5c-4d3e-a2f1-0b9c8d7e6f5a"
	sqlPageID     = "9b8a7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	sqlBountyID   = "5c6d7e8f-9a0b-4c1d-8e2f-3a4b5c6d7e8f"
	sqlMissingID  = "1111aaaa-2222-4bbb-8ccc-333344445555"
	sqlRoleID     = "role-editors"
	sqlSpaceRolID = "sr-1"
)

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	db := squealx.NewDb(sqlDB, "sqlite", "testdb")
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQLStore(db)
}

func seedSQL(t *testing.T, store *SQLStore) {
	t.Helper()
	ctx := context.Background()
	if err := store.InsertSpace(ctx, sqlSpaceID, "acme", permit.TierCommunity); err != nil {
		t.Fatalf("insert space: %v", err)
	}
	if err := store.InsertSpaceRole(ctx, &permit.SpaceRoleRecord{
		ID: sqlSpaceRolID, UserID: sqlUserID, SpaceID: sqlSpaceID,
	}); err != nil {
		t.Fatalf("insert space role: %v", err)
	}
	if err := store.InsertRoleMembership(ctx, sqlSpaceRolID, sqlRoleID); err != nil {
		t.Fatalf("insert membership: %v", err)
	}
	if err := store.InsertResource(ctx, &permit.Resource{
		ID: sqlPageID, SpaceID: sqlSpaceID, Kind: permit.KindPage,
		CreatedBy: sqlUserID, Public: true, Locked: true,
	}); err != nil {
		t.Fatalf("insert page: %v", err)
	}
	if err := store.InsertResource(ctx, &permit.Resource{
		ID: sqlBountyID, SpaceID: sqlSpaceID, Kind: permit.KindPage,
		CreatedBy: sqlUserID, Bounty: &permit.BountyRef{CreatedBy: sqlUserID},
	}); err != nil {
		t.Fatalf("insert bounty page: %v", err)
	}
	if err := store.InsertGrant(ctx, &permit.PermissionGrant{
		ID: "g-1", ResourceID: sqlPageID, RoleID: sqlRoleID, Level: permit.LevelEditor,
	}); err != nil {
		t.Fatalf("insert role grant: %v", err)
	}
	if err := store.InsertGrant(ctx, &permit.PermissionGrant{
		ID: "g-2", ResourceID: sqlPageID, Public: true, Level: permit.LevelView,
	}); err != nil {
		t.Fatalf("insert public grant: %v", err)
	}
	if err := store.InsertGrant(ctx, &permit.PermissionGrant{
		ID: "g-3", ResourceID: sqlBountyID, UserID: sqlUserID,
		Level:      permit.LevelCustom,
		Operations: []permit.Operation{permit.OpRead, permit.OpEditPath},
	}); err != nil {
		t.Fatalf("insert custom grant: %v", err)
	}
}

func TestSQLStoreResourceRoundtrip(t *testing.T) {
	store := newSQLStore(t)
	seedSQL(t, store)
	ctx := context.Background()

	res, err := store.FindResourceByID(ctx, sqlPageID)
	if err != nil {
		t.Fatalf("find resource: %v", err)
	}
	if res == nil || res.Kind != permit.KindPage || !res.Public || !res.Locked {
		t.Fatalf("resource fields lost: %+v", res)
	}

	withBounty, err := store.FindResourceByID(ctx, sqlBountyID)
	if err != nil {
		t.Fatalf("find bounty page: %v", err)
	}
	if withBounty.Bounty == nil || withBounty.Bounty.CreatedBy != sqlUserID {
		t.Fatalf("bounty ref lost: %+v", withBounty)
	}

	missing, err := store.FindResourceByID(ctx, sqlMissingID)
	if err != nil {
		t.Fatalf("find missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing resource must be nil, got %+v", missing)
	}
}

func TestSQLStoreBatchedResources(t *testing.T) {
	store := newSQLStore(t)
	seedSQL(t, store)

	out, err := store.FindResourcesByIDs(context.Background(), []string{sqlPageID, sqlBountyID, sqlMissingID})
	if err != nil {
		t.Fatalf("batch find: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected the two existing resources, got %d", len(out))
	}
}

func TestSQLStoreSpaceRoleAndTier(t *testing.T) {
	store := newSQLStore(t)
	seedSQL(t, store)
	ctx := context.Background()

	role, err := store.FindSpaceRole(ctx, sqlUserID, sqlSpaceID)
	if err != nil {
		t.Fatalf("find role: %v", err)
	}
	if role == nil || role.ID != sqlSpaceRolID || role.IsAdmin || role.IsGuest {
		t.Fatalf("role fields lost: %+v", role)
	}

	none, err := store.FindSpaceRole(ctx, sqlMissingID, sqlSpaceID)
	if err != nil {
		t.Fatalf("find absent role: %v", err)
	}
	if none != nil {
		t.Fatalf("absent membership must be nil, got %+v", none)
	}

	tier, err := store.FindSpaceSubscriptionTier(ctx, sqlSpaceID)
	if err != nil {
		t.Fatalf("find tier: %v", err)
	}
	if tier != permit.TierCommunity {
		t.Fatalf("tier mismatch: %s", tier)
	}

	memberships, err := store.FindRoleMemberships(ctx, sqlSpaceRolID)
	if err != nil {
		t.Fatalf("find memberships: %v", err)
	}
	if len(memberships) != 1 || memberships[0].RoleID != sqlRoleID {
		t.Fatalf("memberships lost: %+v", memberships)
	}
}

func TestSQLStoreGrantsBatch(t *testing.T) {
	store := newSQLStore(t)
	seedSQL(t, store)

	byResource, err := store.FindGrantsForResources(context.Background(), []string{sqlPageID, sqlBountyID})
	if err != nil {
		t.Fatalf("batch grants: %v", err)
	}
	if len(byResource[sqlPageID]) != 2 {
		t.Fatalf("expected two grants on the page, got %d", len(byResource[sqlPageID]))
	}
	custom := byResource[sqlBountyID]
	if len(custom) != 1 || custom[0].Level != permit.LevelCustom {
		t.Fatalf("custom grant lost: %+v", custom)
	}
	if len(custom[0].Operations) != 2 || custom[0].Operations[1] != permit.OpEditPath {
		t.Fatalf("custom operations lost: %+v", custom[0].Operations)
	}
}

func TestSQLStoreDrivesEngine(t *testing.T) {
	store := newSQLStore(t)
	seedSQL(t, store)

	engine, err := permit.NewEngine(store)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	defer engine.Close()

	flags, err := engine.ComputePermissions(context.Background(), permit.ComputeRequest{
		ResourceID: sqlPageID,
		UserID:     sqlUserID,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !flags[permit.OpRead] || !flags[permit.OpEditContent] {
		t.Fatalf("member with editor role grant must read and edit: %v", flags)
	}
	// the page is locked, so structural edits stay off for non-admins
	if flags[permit.OpEditPath] || flags[permit.OpEditPosition] {
		t.Fatalf("locked page must suppress structural edits: %v", flags)
	}
}
