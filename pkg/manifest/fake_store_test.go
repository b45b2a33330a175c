package manifest

import (
	"context"
	"errors"

	"github.com/doodlesbykumbi/orgperm/pkg/permission"
)

type grantKey struct {
	target permission.TargetType
	id     string
}

type state struct {
	permissions map[string]permission.Permission
	allowed     map[string]bool
	roles       map[string]string
	departments map[string]string
	employees   map[string]Employee
	grants      map[grantKey][]permission.Grant
}

func (s state) clone() state {
	c := state{
		permissions: map[string]permission.Permission{},
		allowed:     map[string]bool{},
		roles:       map[string]string{},
		departments: map[string]string{},
		employees:   map[string]Employee{},
		grants:      map[grantKey][]permission.Grant{},
	}
	for k, v := range s.permissions {
		c.permissions[k] = v
	}
	for k, v := range s.allowed {
		c.allowed[k] = v
	}
	for k, v := range s.roles {
		c.roles[k] = v
	}
	for k, v := range s.departments {
		c.departments[k] = v
	}
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.grants {
		c.grants[k] = append([]permission.Grant(nil), v...)
	}
	return c
}

// fakeStore is a single-organization in-memory Store. Transactions
// snapshot the state and restore it when fn fails.
type fakeStore struct {
	st        state
	failOn    string
	committed int
}

func newFakeStore() *fakeStore {
	return &fakeStore{st: state{}.clone()}
}

func (s *fakeStore) Transaction(ctx context.Context, fn func(Store) error) error {
	snapshot := s.st.clone()
	if err := fn(s); err != nil {
		s.st = snapshot
		return err
	}
	s.committed++
	return nil
}

func (s *fakeStore) Permissions() permission.Store {
	return &fakePermissions{s}
}

func (s *fakeStore) fail(op string) error {
	if s.failOn == op {
		return errors.New(op + " failed")
	}
	return nil
}

func (s *fakeStore) UpsertPermission(ctx context.Context, p permission.Permission) error {
	if err := s.fail("permission"); err != nil {
		return err
	}
	s.st.permissions[p.ID] = p
	return nil
}

func (s *fakeStore) AllowPermissions(ctx context.Context, organizationID string, ids []string) error {
	for _, id := range ids {
		s.st.allowed[id] = true
	}
	return nil
}

func (s *fakeStore) UpsertRole(ctx context.Context, organizationID, id, name string) error {
	s.st.roles[id] = name
	return nil
}

func (s *fakeStore) UpsertDepartment(ctx context.Context, organizationID, id, name string) error {
	s.st.departments[id] = name
	return nil
}

func (s *fakeStore) UpsertEmployee(ctx context.Context, organizationID string, e Employee) error {
	if err := s.fail("employee"); err != nil {
		return err
	}
	s.st.employees[e.User] = e
	return nil
}

func (s *fakeStore) allowedIDs(t permission.TargetType, id string) []string {
	var ids []string
	for _, g := range s.st.grants[grantKey{t, id}] {
		if g.Allowed {
			ids = append(ids, g.PermissionID)
		}
	}
	return ids
}

type fakePermissions struct {
	s *fakeStore
}

func (p *fakePermissions) Transaction(ctx context.Context, fn func(permission.Store) error) error {
	return fn(p)
}

func (p *fakePermissions) Catalog(ctx context.Context, organizationID string) ([]permission.Permission, error) {
	var out []permission.Permission
	for id := range p.s.st.allowed {
		if perm, ok := p.s.st.permissions[id]; ok {
			out = append(out, perm)
		}
	}
	return out, nil
}

func (p *fakePermissions) Grants(ctx context.Context, target permission.Target) ([]permission.Grant, error) {
	return p.s.st.grants[grantKey{target.Type, target.ID}], nil
}

func (p *fakePermissions) UserSources(ctx context.Context, organizationID, userID string) ([]permission.SourcedGrant, error) {
	var rows []permission.SourcedGrant
	if e, ok := p.s.st.employees[userID]; ok {
		for _, id := range p.s.allowedIDs(permission.TargetRole, e.Role) {
			rows = append(rows, permission.SourcedGrant{Source: permission.TargetRole, PermissionID: id, Allowed: true})
		}
		for _, id := range p.s.allowedIDs(permission.TargetDepartment, e.Department) {
			rows = append(rows, permission.SourcedGrant{Source: permission.TargetDepartment, PermissionID: id, Allowed: true})
		}
	}
	for _, g := range p.s.st.grants[grantKey{permission.TargetUser, userID}] {
		rows = append(rows, permission.SourcedGrant{Source: permission.TargetUser, PermissionID: g.PermissionID, Allowed: g.Allowed})
	}
	return rows, nil
}

func (p *fakePermissions) DeleteGrants(ctx context.Context, target permission.Target) error {
	delete(p.s.st.grants, grantKey{target.Type, target.ID})
	return nil
}

func (p *fakePermissions) InsertGrants(ctx context.Context, target permission.Target, grants []permission.Grant) error {
	if err := p.s.fail("grants"); err != nil {
		return err
	}
	p.s.st.grants[grantKey{target.Type, target.ID}] = append([]permission.Grant(nil), grants...)
	return nil
}

type countingCache struct {
	invalidated []string
}

func (c *countingCache) GetEffective(ctx context.Context, organizationID, userID string) (permission.IDSet, int64, bool, error) {
	return nil, 0, false, nil
}

func (c *countingCache) SetEffective(ctx context.Context, organizationID, userID string, generation int64, ids permission.IDSet) error {
	return nil
}

func (c *countingCache) InvalidateOrganization(ctx context.Context, organizationID string) error {
	c.invalidated = append(c.invalidated, organizationID)
	return nil
}
