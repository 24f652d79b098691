package stores

import (
	"context"
	"testing"

	"github.com/oarkflow/permit"
)

func TestMemoryStoreRoundtrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.AddSpace("s1", permit.TierReadonly)
	store.AddSpaceRole(&permit.SpaceRoleRecord{ID: "sr1", UserID: "u1", SpaceID: "s1", IsGuest: true})
	store.AssignRole("sr1", "r1")
	store.AssignRole("sr1", "r2")
	store.AddResource(&permit.Resource{ID: "p1", SpaceID: "s1", Kind: permit.KindPage})
	store.AddGrant(&permit.PermissionGrant{ID: "g1", ResourceID: "p1", Public: true, Level: permit.LevelView})

	res, err := store.FindResourceByID(ctx, "p1")
	if err != nil || res == nil || res.Kind != permit.KindPage {
		t.Fatalf("resource lookup: %v %+v", err, res)
	}
	role, err := store.FindSpaceRole(ctx, "u1", "s1")
	if err != nil || role == nil || !role.IsGuest {
		t.Fatalf("role lookup: %v %+v", err, role)
	}
	if other, _ := store.FindSpaceRole(ctx, "u1", "s2"); other != nil {
		t.Fatalf("membership must be scoped to the space, got %+v", other)
	}
	memberships, err := store.FindRoleMemberships(ctx, "sr1")
	if err != nil || len(memberships) != 2 {
		t.Fatalf("membership lookup: %v %+v", err, memberships)
	}
	tier, err := store.FindSpaceSubscriptionTier(ctx, "s1")
	if err != nil || tier != permit.TierReadonly {
		t.Fatalf("tier lookup: %v %s", err, tier)
	}
	grants, err := store.FindGrantsForResource(ctx, "p1")
	if err != nil || len(grants) != 1 {
		t.Fatalf("grant lookup: %v %+v", err, grants)
	}
}

func TestMemoryStoreBatchQueries(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.AddResource(&permit.Resource{ID: "p1", SpaceID: "s1", Kind: permit.KindPage})
	store.AddResource(&permit.Resource{ID: "p2", SpaceID: "s1", Kind: permit.KindPost})
	store.AddGrant(&permit.PermissionGrant{ID: "g1", ResourceID: "p2", Public: true, Level: permit.LevelView})

	res, err := store.FindResourcesByIDs(ctx, []string{"p1", "p2", "p3"})
	if err != nil || len(res) != 2 {
		t.Fatalf("batch resources: %v %+v", err, res)
	}
	grants, err := store.FindGrantsForResources(ctx, []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("batch grants: %v", err)
	}
	if len(grants["p2"]) != 1 {
		t.Fatalf("expected p2's grant in the batch, got %+v", grants)
	}
	if _, ok := grants["p1"]; ok {
		t.Fatalf("resource without grants must be absent from the map")
	}
}

func TestMemoryStoreRemoveResource(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.AddResource(&permit.Resource{ID: "p1", SpaceID: "s1", Kind: permit.KindPage})
	store.AddGrant(&permit.PermissionGrant{ID: "g1", ResourceID: "p1", Public: true, Level: permit.LevelView})
	store.RemoveResource("p1")

	if res, _ := store.FindResourceByID(ctx, "p1"); res != nil {
		t.Fatalf("resource must be gone, got %+v", res)
	}
	if grants, _ := store.FindGrantsForResource(ctx, "p1"); len(grants) != 0 {
		t.Fatalf("grants must be removed with the resource, got %+v", grants)
	}
}

func TestMemoryStoreCopiesOnRead(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.AddGrant(&permit.PermissionGrant{ID: "g1", ResourceID: "p1", Public: true, Level: permit.LevelView})

	grants, _ := store.FindGrantsForResource(ctx, "p1")
	grants[0] = nil
	again, _ := store.FindGrantsForResource(ctx, "p1")
	if again[0] == nil {
		t.Fatalf("returned slices must not alias internal state")
	}
}
