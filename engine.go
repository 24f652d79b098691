package permit

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"

	"github.com/oarkflow/permit/logger"
)

// ============================================================================
// EVALUATION ENGINE
// ============================================================================

// ComputeRequest identifies one resource/user pair to evaluate. UserID may
// be empty for anonymous callers. PreComputedResource and
// PreComputedSpaceRole let the caller reuse lookups it already performed.
type ComputeRequest struct {
	ResourceID           string
	UserID               string
	PreComputedResource  *Resource
	PreComputedSpaceRole *PreComputedSpaceRole
}

// BulkComputeRequest evaluates many resources against one user
type BulkComputeRequest struct {
	ResourceIDs []string
	UserID      string
}

// Engine evaluates operation flag sets for resource/user pairs. It is a
// pure read/compute pipeline: no locks, no writes, no retries. Concurrent
// evaluations are independent.
type Engine struct {
	store          DataStore
	policies       []FilteringPolicy
	logger         logger.Logger
	traceIDFunc    logger.TraceIDFunc
	accessCache    *ristretto.Cache
	accessCacheTTL time.Duration
}

// EngineOption configures an Engine
type EngineOption func(e *Engine) error

// WithLogger installs a Logger on the Engine
func WithLogger(l logger.Logger) EngineOption {
	return func(e *Engine) error {
		e.logger = l
		return nil
	}
}

// WithTraceIDFunc installs a custom trace ID generator
func WithTraceIDFunc(f logger.TraceIDFunc) EngineOption {
	return func(e *Engine) error {
		e.traceIDFunc = f
		return nil
	}
}

// WithPolicies replaces the built-in filtering policy chain. Policies run
// in the given order.
func WithPolicies(policies ...FilteringPolicy) EngineOption {
	return func(e *Engine) error {
		e.policies = policies
		return nil
	}
}

// WithExtraPolicies appends policies after the built-in chain
func WithExtraPolicies(policies ...FilteringPolicy) EngineOption {
	return func(e *Engine) error {
		e.policies = append(e.policies, policies...)
		return nil
	}
}

// WithAccessCache enables the in-process space-access cache. TTL bounds how
// long a membership lookup is reused.
func WithAccessCache(cfg EngineConfig) EngineOption {
	return func(e *Engine) error {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: cfg.ristrettoNumCounters(),
			MaxCost:     cfg.ristrettoMaxCost(),
			BufferItems: cfg.ristrettoBuffer(),
		})
		if err != nil {
			return fmt.Errorf("init access cache: %w", err)
		}
		e.accessCache = cache
		e.accessCacheTTL = cfg.accessCacheTTL()
		return nil
	}
}

// NewEngine builds an evaluator over the given data store
func NewEngine(store DataStore, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("nil data store")
	}
	e := &Engine{
		store:       store,
		policies:    defaultPolicies(),
		logger:      logger.NewNullLogger(),
		traceIDFunc: uuid.NewString,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Close releases the access cache, if any
func (e *Engine) Close() {
	if e.accessCache != nil {
		e.accessCache.Close()
	}
}

// ============================================================================
// SPACE ROLE RESOLUTION
// ============================================================================

// GetAccess resolves a user's membership in a space. An empty userID is an
// anonymous caller and yields a no-access result without any query. A
// supplied precomputed role must match the requested pair exactly; a nil
// role inside the wrapper counts as "definitely not a member".
func (e *Engine) GetAccess(ctx context.Context, userID, spaceID string, pre *PreComputedSpaceRole) (SpaceAccess, error) {
	if err := validateID("spaceId", spaceID); err != nil {
		return SpaceAccess{}, err
	}
	if pre != nil {
		if pre.UserID != userID {
			return SpaceAccess{}, invalidInput("preComputedSpaceRole", fmt.Sprintf("user mismatch: have %q, want %q", pre.UserID, userID))
		}
		if pre.SpaceID != spaceID {
			return SpaceAccess{}, invalidInput("preComputedSpaceRole", fmt.Sprintf("space mismatch: have %q, want %q", pre.SpaceID, spaceID))
		}
		return SpaceAccess{
			SpaceRole:       pre.SpaceRole,
			IsAdmin:         pre.SpaceRole != nil && pre.SpaceRole.IsAdmin,
			IsReadonlySpace: pre.IsReadonlySpace,
		}, nil
	}
	if userID == "" {
		return SpaceAccess{}, nil
	}
	if err := validateID("userId", userID); err != nil {
		return SpaceAccess{}, err
	}

	cacheKey := userID + "|" + spaceID
	if e.accessCache != nil {
		if v, ok := e.accessCache.Get(cacheKey); ok {
			if access, ok := v.(SpaceAccess); ok {
				return access, nil
			}
		}
	}

	role, err := e.store.FindSpaceRole(ctx, userID, spaceID)
	if err != nil {
		return SpaceAccess{}, fmt.Errorf("find space role: %w", err)
	}
	access := SpaceAccess{SpaceRole: role}
	if role != nil {
		access.IsAdmin = role.IsAdmin
		tier, err := e.store.FindSpaceSubscriptionTier(ctx, spaceID)
		if err != nil {
			return SpaceAccess{}, fmt.Errorf("find subscription tier: %w", err)
		}
		access.IsReadonlySpace = tier == TierReadonly
	}

	if e.accessCache != nil {
		e.accessCache.SetWithTTL(cacheKey, access, 1, e.accessCacheTTL)
	}
	return access, nil
}

// ============================================================================
// SINGLE EVALUATION
// ============================================================================

// ComputePermissions evaluates the full flag set for one resource/user
// pair. It never throws for an anonymous user; it does fail hard with
// DataNotFoundError when the resource does not exist.
func (e *Engine) ComputePermissions(ctx context.Context, req ComputeRequest) (FlagSet, error) {
	flags, _, err := e.compute(ctx, req, false)
	return flags, err
}

// ComputePermissionsWithTrace evaluates like ComputePermissions and also
// returns a human-readable step trace for debugging.
func (e *Engine) ComputePermissionsWithTrace(ctx context.Context, req ComputeRequest) (FlagSet, []string, error) {
	return e.compute(ctx, req, true)
}

func (e *Engine) compute(ctx context.Context, req ComputeRequest, includeTrace bool) (FlagSet, []string, error) {
	res := req.PreComputedResource
	if res == nil {
		if err := validateID("resourceId", req.ResourceID); err != nil {
			return nil, nil, err
		}
		found, err := e.store.FindResourceByID(ctx, req.ResourceID)
		if err != nil {
			return nil, nil, fmt.Errorf("find resource: %w", err)
		}
		if found == nil {
			return nil, nil, notFound("resource", req.ResourceID)
		}
		res = found
	}

	access, err := e.GetAccess(ctx, req.UserID, res.SpaceID, req.PreComputedSpaceRole)
	if err != nil {
		return nil, nil, err
	}

	var (
		grants      []*PermissionGrant
		memberships []RoleMembership
	)
	if !access.IsAdmin {
		grants, err = e.store.FindGrantsForResource(ctx, res.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("find grants: %w", err)
		}
		if access.SpaceRole != nil {
			memberships, err = e.store.FindRoleMemberships(ctx, access.SpaceRole.ID)
			if err != nil {
				return nil, nil, fmt.Errorf("find role memberships: %w", err)
			}
		}
	}

	var trace []string
	sink := func(format string, args ...any) {
		if includeTrace {
			trace = append(trace, fmt.Sprintf(format, args...))
		}
	}
	flags, err := e.evaluate(res, req.UserID, access, memberships, grants, sink)
	if err != nil {
		return nil, nil, err
	}
	return flags, trace, nil
}

// evaluate is the shared pure pipeline over already-fetched data. Bulk and
// single evaluation both end here, which is what keeps their results
// bit-for-bit identical.
func (e *Engine) evaluate(res *Resource, userID string, access SpaceAccess, memberships []RoleMembership, grants []*PermissionGrant, sink func(string, ...any)) (FlagSet, error) {
	flags := computeBaseFlags(res, access)
	sink("base %s flags for kind=%s: %v", tierName(access), res.Kind, flags.True(res.Kind))

	if !access.IsAdmin {
		scope := &grantScope{
			userID:  userID,
			spaceID: res.SpaceID,
			member:  access.SpaceRole != nil,
			guest:   access.SpaceRole != nil && access.SpaceRole.IsGuest,
			roleIDs: make(map[string]struct{}, len(memberships)),
		}
		for _, m := range memberships {
			scope.roleIDs[m.RoleID] = struct{}{}
		}
		granted, err := aggregateGrants(res.Kind, grants, scope)
		if err != nil {
			return nil, err
		}
		flags.Union(granted)
		sink("after grant aggregation: %v", flags.True(res.Kind))
	}

	pctx := PolicyContext{
		Resource:        res,
		UserID:          userID,
		IsAdmin:         access.IsAdmin,
		IsReadonlySpace: access.IsReadonlySpace,
	}
	flags = runPolicyChain(e.policies, pctx, flags, func(policy string, op Operation) {
		e.logger.Warn("filtering policy attempted to widen flags",
			"policy", policy,
			"operation", string(op),
			"resource_id", res.ID,
			"trace_id", e.traceID(),
		)
		sink("policy %s tried to widen %s (clamped)", policy, op)
	})
	sink("after policy chain: %v", flags.True(res.Kind))
	return flags, nil
}

func (e *Engine) traceID() string {
	if e.traceIDFunc == nil {
		return ""
	}
	return e.traceIDFunc()
}

func tierName(access SpaceAccess) string {
	switch {
	case access.IsAdmin:
		return "admin"
	case access.SpaceRole != nil && access.SpaceRole.IsGuest:
		return "guest"
	case access.SpaceRole != nil:
		return "member"
	default:
		return "anonymous"
	}
}

// ============================================================================
// BULK EVALUATION
// ============================================================================

// BulkComputePermissions evaluates many resources for one user with shared
// lookups: one resource batch query, one space-role resolution per distinct
// space, one role-membership lookup per distinct space role, and grant
// lookups batched over the non-admin subset only. Per-id results equal
// single evaluation exactly.
func (e *Engine) BulkComputePermissions(ctx context.Context, req BulkComputeRequest) (map[string]FlagSet, error) {
	out := make(map[string]FlagSet, len(req.ResourceIDs))
	if len(req.ResourceIDs) == 0 {
		return out, nil
	}
	for _, id := range req.ResourceIDs {
		if err := validateID("resourceIds", id); err != nil {
			return nil, err
		}
	}
	if req.UserID != "" {
		if err := validateID("userId", req.UserID); err != nil {
			return nil, err
		}
	}

	resources, err := e.store.FindResourcesByIDs(ctx, req.ResourceIDs)
	if err != nil {
		return nil, fmt.Errorf("find resources: %w", err)
	}
	byID := make(map[string]*Resource, len(resources))
	for _, r := range resources {
		byID[r.ID] = r
	}
	for _, id := range req.ResourceIDs {
		if byID[id] == nil {
			return nil, notFound("resource", id)
		}
	}

	// Phase one: collect every distinct lookup across the whole set.
	accessBySpace := make(map[string]SpaceAccess)
	for _, r := range resources {
		if _, ok := accessBySpace[r.SpaceID]; ok {
			continue
		}
		access, err := e.GetAccess(ctx, req.UserID, r.SpaceID, nil)
		if err != nil {
			return nil, err
		}
		accessBySpace[r.SpaceID] = access
	}

	membershipsByRole := make(map[string][]RoleMembership)
	for _, access := range accessBySpace {
		if access.IsAdmin || access.SpaceRole == nil {
			continue
		}
		if _, ok := membershipsByRole[access.SpaceRole.ID]; ok {
			continue
		}
		memberships, err := e.store.FindRoleMemberships(ctx, access.SpaceRole.ID)
		if err != nil {
			return nil, fmt.Errorf("find role memberships: %w", err)
		}
		membershipsByRole[access.SpaceRole.ID] = memberships
	}

	needGrants := make([]string, 0, len(resources))
	for _, r := range resources {
		if !accessBySpace[r.SpaceID].IsAdmin {
			needGrants = append(needGrants, r.ID)
		}
	}
	grantsByResource := make(map[string][]*PermissionGrant)
	if len(needGrants) > 0 {
		grantsByResource, err = e.store.FindGrantsForResources(ctx, needGrants)
		if err != nil {
			return nil, fmt.Errorf("find grants: %w", err)
		}
	}

	// Phase two: pure computation, no further I/O.
	noop := func(string, ...any) {}
	for _, id := range req.ResourceIDs {
		res := byID[id]
		access := accessBySpace[res.SpaceID]
		var memberships []RoleMembership
		if access.SpaceRole != nil {
			memberships = membershipsByRole[access.SpaceRole.ID]
		}
		flags, err := e.evaluate(res, req.UserID, access, memberships, grantsByResource[id], noop)
		if err != nil {
			return nil, err
		}
		out[id] = flags
	}
	return out, nil
}
