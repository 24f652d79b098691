package permit

import (
	"errors"
	"testing"
)

func TestResolveAssigneePriority(t *testing.T) {
	cases := []struct {
		name  string
		grant *PermissionGrant
		want  Assignee
	}{
		{"public wins over role", &PermissionGrant{ID: "g1", Public: true, RoleID: "r1"}, Assignee{Group: GroupPublic}},
		{"public wins over user", &PermissionGrant{ID: "g2", Public: true, UserID: "u1"}, Assignee{Group: GroupPublic}},
		{"role wins over space", &PermissionGrant{ID: "g3", RoleID: "r1", SpaceID: "s1"}, Assignee{Group: GroupRole, ID: "r1"}},
		{"role wins over user", &PermissionGrant{ID: "g4", RoleID: "r1", UserID: "u1"}, Assignee{Group: GroupRole, ID: "r1"}},
		{"user wins over space", &PermissionGrant{ID: "g5", SpaceID: "s1", UserID: "u1"}, Assignee{Group: GroupUser, ID: "u1"}},
		{"space alone", &PermissionGrant{ID: "g6", SpaceID: "s1"}, Assignee{Group: GroupSpace, ID: "s1"}},
		{"user alone", &PermissionGrant{ID: "g7", UserID: "u1"}, Assignee{Group: GroupUser, ID: "u1"}},
	}
	for _, tc := range cases {
		got, err := ResolveAssignee(tc.grant)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestResolveAssigneeRejectsEmptyGrant(t *testing.T) {
	_, err := ResolveAssignee(&PermissionGrant{ID: "g-empty"})
	var gerr *InvalidPermissionGranteeError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected InvalidPermissionGranteeError, got %v", err)
	}
	if gerr.GrantID != "g-empty" {
		t.Fatalf("error must carry the offending grant id, got %q", gerr.GrantID)
	}
}

func TestGrantScopeGuestRestrictions(t *testing.T) {
	guest := &grantScope{userID: "u1", spaceID: "s1", member: true, guest: true, roleIDs: map[string]struct{}{"r1": {}}}
	member := &grantScope{userID: "u1", spaceID: "s1", member: true, roleIDs: map[string]struct{}{"r1": {}}}

	checks := []struct {
		assignee    Assignee
		guestWant   bool
		memberWant  bool
		description string
	}{
		{Assignee{Group: GroupPublic}, true, true, "public reaches everyone"},
		{Assignee{Group: GroupUser, ID: "u1"}, true, true, "user grant reaches its user"},
		{Assignee{Group: GroupUser, ID: "u2"}, false, false, "user grant ignores other users"},
		{Assignee{Group: GroupSpace, ID: "s1"}, false, true, "space grant skips guests"},
		{Assignee{Group: GroupRole, ID: "r1"}, false, true, "role grant skips guests"},
		{Assignee{Group: GroupRole, ID: "r2"}, false, false, "role grant needs membership in the role"},
	}
	for _, c := range checks {
		if got := guest.applies(c.assignee); got != c.guestWant {
			t.Fatalf("guest: %s: got %v", c.description, got)
		}
		if got := member.applies(c.assignee); got != c.memberWant {
			t.Fatalf("member: %s: got %v", c.description, got)
		}
	}
}

func TestAggregateGrantsUnions(t *testing.T) {
	scope := &grantScope{userID: "u1", spaceID: "s1", member: true, roleIDs: map[string]struct{}{"r1": {}}}
	grants := []*PermissionGrant{
		{ID: "g1", ResourceID: "p1", Public: true, Level: LevelView},
		{ID: "g2", ResourceID: "p1", RoleID: "r1", Level: LevelViewComment},
		{ID: "g3", ResourceID: "p1", UserID: "u2", Level: LevelFullAccess}, // someone else
	}
	flags, err := aggregateGrants(KindPage, grants, scope)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	for _, op := range []Operation{OpRead, OpComment, OpCreatePoll} {
		if !flags[op] {
			t.Fatalf("expected %s from the union of view and view_comment", op)
		}
	}
	if flags[OpDelete] || flags[OpEditContent] {
		t.Fatalf("full_access grant for another user must not leak in: %v", flags)
	}
}

func TestAggregateGrantsFailsOnMalformedGrant(t *testing.T) {
	scope := &grantScope{userID: "u1", spaceID: "s1", member: true}
	_, err := aggregateGrants(KindPage, []*PermissionGrant{{ID: "bad"}}, scope)
	var gerr *InvalidPermissionGranteeError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected InvalidPermissionGranteeError, got %v", err)
	}
}

func TestCustomLevelUsesExplicitOperations(t *testing.T) {
	scope := &grantScope{userID: "u1", spaceID: "s1", member: true}
	grants := []*PermissionGrant{{
		ID: "g1", ResourceID: "p1", UserID: "u1",
		Level: LevelCustom, Operations: []Operation{OpRead, OpEditPath},
	}}
	flags, err := aggregateGrants(KindPage, grants, scope)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if !flags[OpRead] || !flags[OpEditPath] {
		t.Fatalf("custom operations must be honored: %v", flags)
	}
	if flags[OpComment] {
		t.Fatalf("custom level must not imply extra operations")
	}
}
