package permit

// AssigneeGroup names the target kind of a permission grant
type AssigneeGroup string

const (
	GroupPublic AssigneeGroup = "public"
	GroupRole   AssigneeGroup = "role"
	GroupSpace  AssigneeGroup = "space"
	GroupUser   AssigneeGroup = "user"
)

// Assignee is the canonical descriptor of a grant's target. ID is empty for
// the public group.
type Assignee struct {
	Group AssigneeGroup `json:"group"`
	ID    string        `json:"id,omitempty"`
}

// ResolveAssignee resolves a grant's raw fields into a canonical assignee.
// A record may carry leftover ids from a prior assignee change, so the
// populated fields are evaluated in fixed priority order: public, then role,
// then space (only when no user id is set), then user. A grant matching no
// pattern yields InvalidPermissionGranteeError.
func ResolveAssignee(g *PermissionGrant) (Assignee, error) {
	switch {
	case g.Public:
		return Assignee{Group: GroupPublic}, nil
	case g.RoleID != "":
		return Assignee{Group: GroupRole, ID: g.RoleID}, nil
	case g.SpaceID != "" && g.UserID == "":
		return Assignee{Group: GroupSpace, ID: g.SpaceID}, nil
	case g.UserID != "":
		return Assignee{Group: GroupUser, ID: g.UserID}, nil
	default:
		return Assignee{}, &InvalidPermissionGranteeError{GrantID: g.ID}
	}
}

// grantScope is the applicability context for one resource/user pair.
// roleIDs holds the roles the user's space membership participates in.
type grantScope struct {
	userID  string
	spaceID string
	member  bool
	guest   bool
	roleIDs map[string]struct{}
}

// applies reports whether a resolved grant reaches the user in scope.
// Guests only receive individually assigned and public grants.
func (s *grantScope) applies(a Assignee) bool {
	switch a.Group {
	case GroupPublic:
		return true
	case GroupUser:
		return s.userID != "" && a.ID == s.userID
	case GroupSpace:
		return s.member && !s.guest && a.ID == s.spaceID
	case GroupRole:
		if !s.member || s.guest {
			return false
		}
		_, ok := s.roleIDs[a.ID]
		return ok
	}
	return false
}

// aggregateGrants unions the operation sets of every applicable grant,
// most-permissive-wins. Grants with an unresolvable assignee fail the whole
// evaluation; a malformed grant record is a data error, not a deny.
func aggregateGrants(kind ResourceKind, grants []*PermissionGrant, scope *grantScope) (FlagSet, error) {
	flags := EmptyFlags(kind)
	for _, g := range grants {
		assignee, err := ResolveAssignee(g)
		if err != nil {
			return nil, err
		}
		if !scope.applies(assignee) {
			continue
		}
		flags.Grant(OperationsForLevel(g)...)
	}
	return flags, nil
}
