package permission

import (
	"context"
	"sort"
	"sync"
)

type employee struct {
	role string
	dept string
}

// memStore is an in-memory Store. Transactions snapshot the grant rows and
// restore them when fn fails.
type memStore struct {
	mu        sync.Mutex
	catalog   map[string][]Permission
	grants    map[Target]map[string]bool
	employees map[string]employee

	failInsert error
	catalogs   int

	// afterSources runs once UserSources has read its rows, standing in for
	// a write that commits while a reader is still computing.
	afterSources func()
}

func newMemStore() *memStore {
	return &memStore{
		catalog:   map[string][]Permission{},
		grants:    map[Target]map[string]bool{},
		employees: map[string]employee{},
	}
}

func rowKey(t Target) Target {
	t.ParentRoleID = ""
	return t
}

func (s *memStore) addPermissions(org string, perms ...Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog[org] = append(s.catalog[org], perms...)
}

func (s *memStore) grant(t Target, allowed bool, ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := rowKey(t)
	if s.grants[k] == nil {
		s.grants[k] = map[string]bool{}
	}
	for _, id := range ids {
		s.grants[k][id] = allowed
	}
}

func (s *memStore) hire(org, user, role, dept string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[org+"/"+user] = employee{role: role, dept: dept}
}

func (s *memStore) rows(t Target) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]bool{}
	for id, allowed := range s.grants[rowKey(t)] {
		out[id] = allowed
	}
	return out
}

func (s *memStore) Transaction(_ context.Context, fn func(Store) error) error {
	s.mu.Lock()
	snapshot := map[Target]map[string]bool{}
	for k, rows := range s.grants {
		copied := map[string]bool{}
		for id, allowed := range rows {
			copied[id] = allowed
		}
		snapshot[k] = copied
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.grants = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) Catalog(_ context.Context, org string) ([]Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogs++
	return append([]Permission(nil), s.catalog[org]...), nil
}

func (s *memStore) Grants(_ context.Context, t Target) ([]Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grantsLocked(rowKey(t)), nil
}

func (s *memStore) grantsLocked(t Target) []Grant {
	var grants []Grant
	for id, allowed := range s.grants[t] {
		grants = append(grants, Grant{PermissionID: id, Allowed: allowed})
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].PermissionID < grants[j].PermissionID })
	return grants
}

func (s *memStore) UserSources(_ context.Context, org, user string) ([]SourcedGrant, error) {
	rows := s.userSources(org, user)
	if s.afterSources != nil {
		s.afterSources()
	}
	return rows, nil
}

func (s *memStore) userSources(org, user string) []SourcedGrant {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []SourcedGrant
	add := func(source TargetType, t Target) {
		for _, g := range s.grantsLocked(t) {
			rows = append(rows, SourcedGrant{Source: source, PermissionID: g.PermissionID, Allowed: g.Allowed})
		}
	}
	if e, ok := s.employees[org+"/"+user]; ok {
		if e.role != "" {
			add(TargetRole, Target{Type: TargetRole, ID: e.role, OrganizationID: org})
		}
		if e.dept != "" {
			add(TargetDepartment, Target{Type: TargetDepartment, ID: e.dept, OrganizationID: org})
		}
	}
	add(TargetUser, Target{Type: TargetUser, ID: user, OrganizationID: org})
	return rows
}

func (s *memStore) DeleteGrants(_ context.Context, t Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, rowKey(t))
	return nil
}

func (s *memStore) InsertGrants(_ context.Context, t Target, grants []Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert != nil {
		return s.failInsert
	}
	k := rowKey(t)
	if s.grants[k] == nil {
		s.grants[k] = map[string]bool{}
	}
	for _, g := range grants {
		s.grants[k][g.PermissionID] = g.Allowed
	}
	return nil
}

// memCache is an in-memory Cache with per-organization generations.
type memCache struct {
	mu          sync.Mutex
	entries     map[string]IDSet
	generations map[string]int64
	gets        int
	dropped     int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]IDSet{}, generations: map[string]int64{}}
}

func (c *memCache) GetEffective(_ context.Context, org, user string) (IDSet, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	ids, ok := c.entries[org+"/"+user]
	return ids, c.generations[org], ok, nil
}

func (c *memCache) SetEffective(_ context.Context, org, user string, generation int64, ids IDSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generations[org] {
		c.dropped++
		return nil
	}
	c.entries[org+"/"+user] = ids
	return nil
}

func (c *memCache) InvalidateOrganization(_ context.Context, org string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[org]++
	for k := range c.entries {
		if len(k) > len(org) && k[:len(org)+1] == org+"/" {
			delete(c.entries, k)
		}
	}
	return nil
}
