package permit

// baseRule is one row of the generic base-permission table. memberOps go to
// non-guest members; the rest of the tiering (admin full, anonymous public
// read) is uniform across kinds.
type baseRule struct {
	memberOps []Operation
}

// baseRules is the per-kind rule table. Members never get the destructive
// or administrative operations by default; those come from grants, ownership
// or admin status.
var baseRules = map[ResourceKind]baseRule{
	KindPage: {memberOps: []Operation{
		OpRead, OpComment, OpCreatePoll, OpEditContent, OpEditPath,
		OpEditPosition, OpEditLock,
	}},
	KindBounty:   {memberOps: []Operation{OpRead, OpComment}},
	KindProposal: {memberOps: []Operation{OpRead, OpComment}},
	KindPost:     {memberOps: []Operation{OpRead, OpComment}},
	KindSpace:    {memberOps: []Operation{OpRead}},
}

// computeBaseFlags maps (resource, resolved access) to the initial flag set,
// before grant aggregation and before any narrowing policy. Pure function:
// admin/member/readonly status is injected, never re-derived here.
func computeBaseFlags(res *Resource, access SpaceAccess) FlagSet {
	if access.IsAdmin {
		return FullFlags(res.Kind, access.IsReadonlySpace)
	}

	flags := EmptyFlags(res.Kind)
	role := access.SpaceRole

	if role == nil || role.IsGuest {
		// Anonymous users, non-members and guests start from public
		// visibility only; guests pick up their individual grants later.
		if res.Public {
			flags.Grant(OpRead)
		}
		return flags
	}

	rule := baseRules[res.Kind]
	if access.IsReadonlySpace {
		flags.Grant(OpRead)
		return flags
	}
	flags.Grant(rule.memberOps...)

	// The resource creator keeps control of its own entity.
	if res.CreatedBy != "" && res.CreatedBy == role.UserID {
		flags.Grant(OpEditContent, OpDelete, OpGrantPermissions)
	}
	return flags
}
