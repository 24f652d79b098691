package permit

// Operation is one named capability on a resource
type Operation string

const (
	OpRead                 Operation = "read"
	OpComment              Operation = "comment"
	OpCreatePoll           Operation = "create_poll"
	OpEditContent          Operation = "edit_content"
	OpEditPath             Operation = "edit_path"
	OpEditPosition         Operation = "edit_position"
	OpEditLock             Operation = "edit_lock"
	OpDelete               Operation = "delete"
	OpGrantPermissions     Operation = "grant_permissions"
	OpDeleteAttachedBounty Operation = "delete_attached_bounty"
)

// operationsByKind fixes the flag-set shape for each resource kind. Every
// flag set produced for a resource contains exactly these keys.
var operationsByKind = map[ResourceKind][]Operation{
	KindPage: {
		OpRead, OpComment, OpCreatePoll, OpEditContent, OpEditPath,
		OpEditPosition, OpEditLock, OpDelete, OpGrantPermissions,
		OpDeleteAttachedBounty,
	},
	KindBounty: {
		OpRead, OpComment, OpEditContent, OpDelete, OpGrantPermissions,
	},
	KindProposal: {
		OpRead, OpComment, OpEditContent, OpDelete, OpGrantPermissions,
	},
	KindPost: {
		OpRead, OpComment, OpEditContent, OpDelete,
	},
	KindSpace: {
		OpRead, OpEditContent, OpDelete, OpGrantPermissions,
	},
}

// OperationsForKind returns the fixed operation shape for a resource kind
func OperationsForKind(kind ResourceKind) []Operation {
	return operationsByKind[kind]
}

// FlagSet maps every operation of one resource kind to a boolean
type FlagSet map[Operation]bool

// EmptyFlags returns an all-false flag set shaped for kind
func EmptyFlags(kind ResourceKind) FlagSet {
	ops := operationsByKind[kind]
	f := make(FlagSet, len(ops))
	for _, op := range ops {
		f[op] = false
	}
	return f
}

// FullFlags returns an all-true flag set shaped for kind. When the owning
// space is readonly every mutation operation stays false.
func FullFlags(kind ResourceKind, isReadonlySpace bool) FlagSet {
	f := EmptyFlags(kind)
	for op := range f {
		if isReadonlySpace && op != OpRead {
			continue
		}
		f[op] = true
	}
	return f
}

// Clone returns an independent copy of the flag set
func (f FlagSet) Clone() FlagSet {
	out := make(FlagSet, len(f))
	for op, v := range f {
		out[op] = v
	}
	return out
}

// AllFalse reports whether no operation is granted
func (f FlagSet) AllFalse() bool {
	for _, v := range f {
		if v {
			return false
		}
	}
	return true
}

// Grant sets the listed operations true, ignoring operations outside the
// set's shape
func (f FlagSet) Grant(ops ...Operation) {
	for _, op := range ops {
		if _, ok := f[op]; ok {
			f[op] = true
		}
	}
}

// Union merges other into f, most-permissive-wins
func (f FlagSet) Union(other FlagSet) {
	for op, v := range other {
		if v {
			if _, ok := f[op]; ok {
				f[op] = true
			}
		}
	}
}

// Equal reports whether two flag sets have identical shape and values
func (f FlagSet) Equal(other FlagSet) bool {
	if len(f) != len(other) {
		return false
	}
	for op, v := range f {
		ov, ok := other[op]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// True returns the granted operations in shape order for kind
func (f FlagSet) True(kind ResourceKind) []Operation {
	out := make([]Operation, 0, len(f))
	for _, op := range operationsByKind[kind] {
		if f[op] {
			out = append(out, op)
		}
	}
	return out
}

// permissionLevelOps expands preset levels into operation bundles. Custom
// grants carry their own operation list instead.
var permissionLevelOps = map[PermissionLevel][]Operation{
	LevelFullAccess: {
		OpRead, OpComment, OpCreatePoll, OpEditContent, OpEditPath,
		OpEditPosition, OpEditLock, OpDelete, OpGrantPermissions,
		OpDeleteAttachedBounty,
	},
	LevelEditor:      {OpRead, OpComment, OpCreatePoll, OpEditContent},
	LevelViewComment: {OpRead, OpComment, OpCreatePoll},
	LevelView:        {OpRead},
}

// OperationsForLevel expands a grant's level (or custom list) to operations
func OperationsForLevel(g *PermissionGrant) []Operation {
	if g.Level == LevelCustom {
		return g.Operations
	}
	return permissionLevelOps[g.Level]
}
