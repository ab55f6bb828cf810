package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPermissionItem_SetOperations(t *testing.T) {
	p := NewPermissionItem("site", TargetUser, "u1")
	require.Empty(t, p.List())

	p.Add("read", "write")
	p.Add("read")
	require.Equal(t, []string{"read", "write", "read"}, p.List())
	require.Equal(t, "read\nwrite\nread", p.Permissions)

	require.True(t, p.HasAny("admin", "write"))
	require.False(t, p.HasAny("admin"))
	require.True(t, p.HasAll("read", "write"))
	require.False(t, p.HasAll("read", "admin"))
	require.True(t, p.HasAll())

	require.Equal(t, 2, p.Remove("read"))
	require.Equal(t, []string{"write"}, p.List())
}

func TestPermissionItem_ListReflectsDirectWrites(t *testing.T) {
	p := NewPermissionItem("site", TargetGroup, "g1")
	p.Set([]string{"a", " ", "b"})
	require.Equal(t, []string{"a", "b"}, p.List())

	p.Permissions = "c\n\nd\n"
	require.Equal(t, []string{"c", "d"}, p.List())
}

func TestUserSitePermissionSet_Union(t *testing.T) {
	user := NewPermissionItem("s", TargetUser, "u")
	user.Set([]string{"profile"})
	g1 := NewPermissionItem("s", TargetGroup, "g1")
	g1.Set([]string{"blog-write", "profile"})
	g2 := NewPermissionItem("s", TargetGroup, "g2")
	g2.Set([]string{"mail"})
	g2.State = StateDeleted

	set := &UserSitePermissionSet{SiteID: "s", UserID: "u", User: user, Groups: []*PermissionItem{g1, g2}}
	require.Equal(t, []string{"profile", "blog-write"}, set.List())
	require.True(t, set.HasAny("blog-write"))
	require.True(t, set.HasAll("profile", "blog-write"))
	require.False(t, set.HasAny("mail"))

	onlyGroup := &UserSitePermissionSet{Groups: []*PermissionItem{g1}}
	require.True(t, onlyGroup.HasAll("blog-write"))
}

func TestParseTargetType(t *testing.T) {
	tt, ok := ParseTargetType("Group")
	require.True(t, ok)
	require.Equal(t, TargetGroup, tt)

	_, ok = ParseTargetType("site")
	require.False(t, ok)
}
