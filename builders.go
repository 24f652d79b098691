package permit

// Builders provide a fluent API for creating Resources and PermissionGrants

// ResourceBuilder builds a Resource
type ResourceBuilder struct {
	r *Resource
}

func NewResourceBuilder() *ResourceBuilder {
	return &ResourceBuilder{r: &Resource{Kind: KindPage}}
}

func (b *ResourceBuilder) ID(id string) *ResourceBuilder { b.r.ID = id; return b }

func (b *ResourceBuilder) Space(id string) *ResourceBuilder { b.r.SpaceID = id; return b }

func (b *ResourceBuilder) Kind(k ResourceKind) *ResourceBuilder { b.r.Kind = k; return b }

func (b *ResourceBuilder) CreatedBy(id string) *ResourceBuilder { b.r.CreatedBy = id; return b }

func (b *ResourceBuilder) Parent(id string) *ResourceBuilder { b.r.ParentID = id; return b }

func (b *ResourceBuilder) Public(public bool) *ResourceBuilder { b.r.Public = public; return b }

func (b *ResourceBuilder) Locked(locked bool) *ResourceBuilder { b.r.Locked = locked; return b }

func (b *ResourceBuilder) ConvertedTo(proposalID string) *ResourceBuilder {
	b.r.ConvertedProposalID = proposalID
	return b
}
func (b *ResourceBuilder) AttachedBounty(createdBy string) *ResourceBuilder {
	b.r.Bounty = &BountyRef{CreatedBy: createdBy}
	return b
}
func (b *ResourceBuilder) Build() *Resource { return b.r }

// GrantBuilder builds a PermissionGrant
type GrantBuilder struct {
	g *PermissionGrant
}

func NewGrantBuilder() *GrantBuilder {
	return &GrantBuilder{g: &PermissionGrant{Level: LevelView}}
}

func (b *GrantBuilder) ID(id string) *GrantBuilder { b.g.ID = id; return b }

func (b *GrantBuilder) Resource(id string) *GrantBuilder { b.g.ResourceID = id; return b }

func (b *GrantBuilder) Public() *GrantBuilder { b.g.Public = true; return b }

func (b *GrantBuilder) Role(id string) *GrantBuilder { b.g.RoleID = id; return b }

func (b *GrantBuilder) Space(id string) *GrantBuilder { b.g.SpaceID = id; return b }

func (b *GrantBuilder) User(id string) *GrantBuilder { b.g.UserID = id; return b }

func (b *GrantBuilder) Level(l PermissionLevel) *GrantBuilder { b.g.Level = l; return b }

func (b *GrantBuilder) Operations(ops ...Operation) *GrantBuilder {
	b.g.Level = LevelCustom
	b.g.Operations = append(b.g.Operations, ops...)
	return b
}
func (b *GrantBuilder) Build() *PermissionGrant { return b.g }
