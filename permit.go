package permit

import (
	"context"
	"time"
)

// ============================================================================
// DOMAIN OBJECTS
// ============================================================================

// ResourceKind discriminates the permissioned entity variants
type ResourceKind string

const (
	KindPage     ResourceKind = "page"
	KindBounty   ResourceKind = "bounty"
	KindProposal ResourceKind = "proposal"
	KindPost     ResourceKind = "post"
	KindSpace    ResourceKind = "space"
)

// BountyRef carries the reward metadata attached to a bounty-typed resource
type BountyRef struct {
	CreatedBy string `json:"created_by" yaml:"created_by"`
}

// Resource is a read-only snapshot of a permissioned entity. Lifecycle is
// owned by the surrounding application; the evaluator never writes it.
type Resource struct {
	ID                  string       `json:"id" yaml:"id"`
	SpaceID             string       `json:"space_id" yaml:"space_id"`
	Kind                ResourceKind `json:"kind" yaml:"kind"`
	CreatedBy           string       `json:"created_by" yaml:"created_by"`
	ParentID            string       `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Public              bool         `json:"public" yaml:"public"`
	Locked              bool         `json:"locked" yaml:"locked"`
	ConvertedProposalID string       `json:"converted_proposal_id,omitempty" yaml:"converted_proposal_id,omitempty"`
	Bounty              *BountyRef   `json:"bounty,omitempty" yaml:"bounty,omitempty"`
}

// SubscriptionTier is the billing tier of a space
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierCommunity  SubscriptionTier = "community"
	TierEnterprise SubscriptionTier = "enterprise"
	TierReadonly   SubscriptionTier = "readonly"
)

// SpaceRoleRecord represents a user's membership in a space. Absence of a
// record means "not a member".
type SpaceRoleRecord struct {
	ID        string    `json:"id" yaml:"id"`
	UserID    string    `json:"user_id" yaml:"user_id"`
	SpaceID   string    `json:"space_id" yaml:"space_id"`
	IsAdmin   bool      `json:"is_admin" yaml:"is_admin"`
	IsGuest   bool      `json:"is_guest" yaml:"is_guest"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// RoleMembership joins a space membership to a role
type RoleMembership struct {
	SpaceRoleID string `json:"space_role_id" yaml:"space_role_id"`
	RoleID      string `json:"role_id" yaml:"role_id"`
}

// PermissionLevel names a preset operation bundle assignable by a grant
type PermissionLevel string

const (
	LevelFullAccess  PermissionLevel = "full_access"
	LevelEditor      PermissionLevel = "editor"
	LevelViewComment PermissionLevel = "view_comment"
	LevelView        PermissionLevel = "view"
	LevelCustom      PermissionLevel = "custom"
)

// PermissionGrant ties a resource to an assignee with a permission level or,
// for the custom level, an explicit operation list. A record may carry stale
// ids from a prior assignee change; ResolveAssignee applies a fixed priority
// order over the populated fields.
type PermissionGrant struct {
	ID         string          `json:"id" yaml:"id"`
	ResourceID string          `json:"resource_id" yaml:"resource_id"`
	Public     bool            `json:"public" yaml:"public"`
	RoleID     string          `json:"role_id,omitempty" yaml:"role_id,omitempty"`
	SpaceID    string          `json:"space_id,omitempty" yaml:"space_id,omitempty"`
	UserID     string          `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Level      PermissionLevel `json:"level" yaml:"level"`
	Operations []Operation     `json:"operations,omitempty" yaml:"operations,omitempty"`
	CreatedAt  time.Time       `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// SpaceAccess is the resolved membership view for one user in one space
type SpaceAccess struct {
	SpaceRole       *SpaceRoleRecord `json:"space_role"`
	IsAdmin         bool             `json:"is_admin"`
	IsReadonlySpace bool             `json:"is_readonly_space"`
}

// PreComputedSpaceRole lets a caller reuse a membership lookup across
// evaluations. A nil SpaceRole inside a non-nil wrapper means "definitely
// not a member" and is honored without a new query.
type PreComputedSpaceRole struct {
	UserID          string           `json:"user_id"`
	SpaceID         string           `json:"space_id"`
	SpaceRole       *SpaceRoleRecord `json:"space_role"`
	IsReadonlySpace bool             `json:"is_readonly_space"`
}

// ============================================================================
// STORAGE INTERFACE
// ============================================================================

// DataStore is the read-only collaborator the evaluator queries. All methods
// return (zero, nil) for absent records rather than an error; the evaluator
// decides whether absence is fatal.
type DataStore interface {
	FindResourceByID(ctx context.Context, id string) (*Resource, error)
	FindResourcesByIDs(ctx context.Context, ids []string) ([]*Resource, error)
	FindSpaceRole(ctx context.Context, userID, spaceID string) (*SpaceRoleRecord, error)
	FindRoleMemberships(ctx context.Context, spaceRoleID string) ([]RoleMembership, error)
	FindGrantsForResource(ctx context.Context, resourceID string) ([]*PermissionGrant, error)
	FindGrantsForResources(ctx context.Context, resourceIDs []string) (map[string][]*PermissionGrant, error)
	FindSpaceSubscriptionTier(ctx context.Context, spaceID string) (SubscriptionTier, error)
}
