package permit

// PolicyContext carries the inputs a filtering policy may consult
type PolicyContext struct {
	Resource        *Resource
	UserID          string
	IsAdmin         bool
	IsReadonlySpace bool
}

// FilteringPolicy narrows a flag set. For every operation o the contract is
// out[o] == true implies in[o] == true; the runner enforces this even for
// misbehaving policies.
type FilteringPolicy struct {
	Name  string
	Apply func(ctx PolicyContext, flags FlagSet) FlagSet
}

// defaultPolicies is the built-in chain, applied in registration order
func defaultPolicies() []FilteringPolicy {
	return []FilteringPolicy{
		{Name: "readonly_space", Apply: readonlySpacePolicy},
		{Name: "converted_to_proposal", Apply: convertedToProposalPolicy},
		{Name: "locked_resource", Apply: lockedResourcePolicy},
		{Name: "bounty_creator_exclusivity", Apply: bountyCreatorPolicy},
	}
}

// readonlySpacePolicy collapses every mutation operation in a readonly
// space, admin or not. The read flag is the only survivor.
func readonlySpacePolicy(ctx PolicyContext, flags FlagSet) FlagSet {
	if !ctx.IsReadonlySpace {
		return flags
	}
	out := flags.Clone()
	for op := range out {
		if op != OpRead {
			out[op] = false
		}
	}
	return out
}

// convertedToProposalPolicy freezes resources superseded by a proposal
// conversion: non-admins keep read at most.
func convertedToProposalPolicy(ctx PolicyContext, flags FlagSet) FlagSet {
	if ctx.Resource.ConvertedProposalID == "" || ctx.IsAdmin {
		return flags
	}
	out := flags.Clone()
	for op := range out {
		if op != OpRead {
			out[op] = false
		}
	}
	return out
}

// lockedResourcePolicy removes the structural-edit operations on locked
// resources for everyone except admins.
func lockedResourcePolicy(ctx PolicyContext, flags FlagSet) FlagSet {
	if !ctx.Resource.Locked || ctx.IsAdmin {
		return flags
	}
	out := flags.Clone()
	for _, op := range []Operation{OpEditPath, OpEditPosition, OpDelete} {
		if _, ok := out[op]; ok {
			out[op] = false
		}
	}
	return out
}

// bountyCreatorPolicy keeps edit_content and delete exclusive to the
// bounty's creator (and admins) on bounty-typed resources.
func bountyCreatorPolicy(ctx PolicyContext, flags FlagSet) FlagSet {
	if ctx.IsAdmin {
		return flags
	}
	creator := ""
	switch {
	case ctx.Resource.Kind == KindBounty:
		creator = ctx.Resource.CreatedBy
	case ctx.Resource.Bounty != nil:
		creator = ctx.Resource.Bounty.CreatedBy
	default:
		return flags
	}
	if ctx.UserID != "" && ctx.UserID == creator {
		return flags
	}
	out := flags.Clone()
	for _, op := range []Operation{OpEditContent, OpDelete, OpDeleteAttachedBounty} {
		if _, ok := out[op]; ok {
			out[op] = false
		}
	}
	return out
}

// runPolicyChain applies the chain in order. Any flag a policy tries to
// flip from false to true is forced back and reported through onWiden;
// failing the whole request over a policy bug would be worse than enforcing
// the narrowing invariant. Once every flag is false the chain stops.
func runPolicyChain(policies []FilteringPolicy, ctx PolicyContext, flags FlagSet, onWiden func(policy string, op Operation)) FlagSet {
	current := flags
	for _, p := range policies {
		next := p.Apply(ctx, current.Clone())
		for op, v := range next {
			if v && !current[op] {
				next[op] = false
				if onWiden != nil {
					onWiden(p.Name, op)
				}
			}
		}
		// reshape so a policy cannot drop or add keys for the kind
		clamped := EmptyFlags(ctx.Resource.Kind)
		for op := range clamped {
			clamped[op] = next[op] && current[op]
		}
		current = clamped
		if current.AllFalse() {
			break
		}
	}
	return current
}
