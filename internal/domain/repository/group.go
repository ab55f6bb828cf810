package repository

// GroupVisibility controla si un grupo aparece en listados públicos.
type GroupVisibility int

const (
	GroupVisibilityPublic GroupVisibility = 0
	GroupVisibilityHidden GroupVisibility = 1
)

// GroupRole es el rol de un miembro dentro de un grupo.
type GroupRole int

const (
	GroupRoleMember  GroupRole = 1
	GroupRoleManager GroupRole = 2
	GroupRoleOwner   GroupRole = 3
)

// UserGroup es una colección nombrada de usuarios.
type UserGroup struct {
	Base
	Name        string
	Nickname    string
	Avatar      string
	Description string
	OwnerSiteID string
	Visibility  GroupVisibility
}

// NewUserGroup construye un grupo público activo.
func NewUserGroup(name, ownerSiteID string) *UserGroup {
	return &UserGroup{Base: Base{State: StateNormal}, Name: name, OwnerSiteID: ownerSiteID}
}

// UserGroupRelationship es la membresía (con rol y estado propio) de un user en un group.
type UserGroupRelationship struct {
	Base
	GroupID string
	UserID  string
	Role    GroupRole
}

// NewMembership construye una membresía activa.
func NewMembership(groupID, userID string, role GroupRole) *UserGroupRelationship {
	if role == 0 {
		role = GroupRoleMember
	}
	return &UserGroupRelationship{Base: Base{State: StateNormal}, GroupID: groupID, UserID: userID, Role: role}
}
