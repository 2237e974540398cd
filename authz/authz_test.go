package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/George-Dev-Web/cakes2/models"
)

func TestEnforcer(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	tests := []struct {
		role, resource, action string
		want                   bool
	}{
		{models.RoleGuest, ResourceCakes, ActionRead, true},
		{models.RoleGuest, ResourceCakes, ActionWrite, false},
		{models.RoleGuest, ResourceOrders, ActionWrite, true},
		{models.RoleGuest, ResourceOrders, ActionRead, true},
		{models.RoleGuest, ResourceUsers, ActionRead, false},
		{models.RoleCustomer, ResourceCakes, ActionRead, true},
		{models.RoleCustomer, ResourceUsers, ActionRead, true},
		{models.RoleCustomer, ResourceUsers, ActionWrite, false},
		{models.RoleCustomer, ResourceCustomizations, ActionManage, false},
		{models.RoleCustomer, ResourceUploads, ActionWrite, false},
		{models.RoleAdmin, ResourceCakes, ActionWrite, true},
		{models.RoleAdmin, ResourceCustomizations, ActionManage, true},
		{models.RoleAdmin, ResourceUploads, ActionWrite, true},
		{models.RoleAdmin, ResourceUsers, ActionRead, true},
		{"stranger", ResourceCakes, ActionRead, false},
	}
	for _, tc := range tests {
		got, err := e.Allowed(tc.role, tc.resource, tc.action)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s %s %s", tc.role, tc.action, tc.resource)
	}
}

func TestPermissions(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	perms, err := e.Permissions(models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, perms, 5)
}
