// Package authz decides which role may perform which action on which
// resource, using a casbin RBAC model built in code.
package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/George-Dev-Web/cakes2/models"
)

const (
	ResourceCakes          = "cakes"
	ResourceCustomizations = "customizations"
	ResourceOrders         = "orders"
	ResourceUsers          = "users"
	ResourceUploads        = "uploads"

	ActionRead   = "read"
	ActionWrite  = "write"
	ActionManage = "manage"
)

// g links roles (admin > customer > guest); g2 links actions
// (manage > write > read) so a grant on manage also covers the weaker ones.
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _
g2 = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && g2(p.act, r.act)
`

var defaultPolicies = [][]string{
	{models.RoleGuest, ResourceCakes, ActionRead},
	{models.RoleGuest, ResourceCustomizations, ActionRead},
	{models.RoleGuest, ResourceOrders, ActionWrite},

	{models.RoleCustomer, ResourceUsers, ActionRead},

	{models.RoleAdmin, ResourceCakes, ActionManage},
	{models.RoleAdmin, ResourceCustomizations, ActionManage},
	{models.RoleAdmin, ResourceOrders, ActionManage},
	{models.RoleAdmin, ResourceUsers, ActionManage},
	{models.RoleAdmin, ResourceUploads, ActionManage},
}

var roleHierarchy = [][]string{
	{models.RoleCustomer, models.RoleGuest},
	{models.RoleAdmin, models.RoleCustomer},
}

var actionHierarchy = [][]string{
	{ActionManage, ActionWrite},
	{ActionWrite, ActionRead},
}

type Enforcer struct {
	e *casbin.Enforcer
}

func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load RBAC model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RBAC enforcer: %w", err)
	}
	if _, err := e.AddPolicies(defaultPolicies); err != nil {
		return nil, fmt.Errorf("failed to add policies: %w", err)
	}
	if _, err := e.AddGroupingPolicies(roleHierarchy); err != nil {
		return nil, fmt.Errorf("failed to add role hierarchy: %w", err)
	}
	if _, err := e.AddNamedGroupingPolicies("g2", actionHierarchy); err != nil {
		return nil, fmt.Errorf("failed to add action hierarchy: %w", err)
	}
	return &Enforcer{e: e}, nil
}

// Allowed reports whether role may perform action on resource.
func (a *Enforcer) Allowed(role, resource, action string) (bool, error) {
	ok, err := a.e.Enforce(role, resource, action)
	if err != nil {
		return false, fmt.Errorf("RBAC permission check failed: %w", err)
	}
	return ok, nil
}

// Permissions lists the direct grants of role, for diagnostics.
func (a *Enforcer) Permissions(role string) ([][]string, error) {
	return a.e.GetPermissionsForUser(role)
}
