package permission

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	permUsersRead    = "p-users-read"
	permUsersEdit    = "p-users-edit"
	permJobsPost     = "p-jobs-post"
	permProjectsView = "p-projects-view"
	permInvoices     = "p-invoices"
	permLabs         = "p-labs"
)

func fixtureStore() *memStore {
	s := newMemStore()
	s.addPermissions("acme",
		Permission{ID: permUsersRead, Key: "users.read", Name: "View users", SuiteKey: "general", Category: "Users"},
		Permission{ID: permUsersEdit, Key: "users.edit", Name: "Edit users", SuiteKey: "general", Category: "Users"},
		Permission{ID: permJobsPost, Key: "jobs.post", Name: "Post jobs", SuiteKey: "hiring", Category: "Jobs"},
		Permission{ID: permProjectsView, Key: "projects.view", Name: "View projects", SuiteKey: "project", Category: "Projects"},
		Permission{ID: permInvoices, Key: "finance.invoices", Name: "Issue invoices", SuiteKey: "finance", Category: "Invoices"},
		Permission{ID: permLabs, Key: "labs.beta", Name: "Beta features", SuiteKey: "labs", Category: "Labs"},
	)
	s.addPermissions("globex",
		Permission{ID: permUsersRead, Key: "users.read", Name: "View users", SuiteKey: "general", Category: "Users"},
	)
	return s
}

func role(id string) Target {
	return Target{Type: TargetRole, ID: id, OrganizationID: "acme"}
}

func department(id, parentRole string) Target {
	return Target{Type: TargetDepartment, ID: id, OrganizationID: "acme", ParentRoleID: parentRole}
}

func user(id string) Target {
	return Target{Type: TargetUser, ID: id, OrganizationID: "acme"}
}

func entryFor(t *testing.T, m *Matrix, id string) Entry {
	t.Helper()
	for _, g := range m.Groups {
		for _, e := range g.Entries {
			if e.ID == id {
				return e
			}
		}
	}
	t.Fatalf("no entry for %s", id)
	return Entry{}
}

func TestLoadRole(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead, permUsersEdit, "p-removed")
	r := NewResolver(s)

	m, err := r.Load(context.Background(), role("admin"))
	require.NoError(t, err)

	assert.Equal(t, []string{permUsersEdit, permUsersRead}, m.Selected.Sorted())
	assert.Empty(t, m.InheritedFromRole)
	assert.Empty(t, m.InheritedFromDept)
	assert.True(t, entryFor(t, m, permUsersRead).Selected)
	assert.False(t, entryFor(t, m, permJobsPost).Selected)
	assert.Equal(t, Badge{}, entryFor(t, m, permUsersRead).Badge)
}

func TestLoadDepartment(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead)
	s.grant(department("eng", ""), true, permJobsPost)
	r := NewResolver(s)

	t.Run("with parent role", func(t *testing.T) {
		m, err := r.Load(context.Background(), department("eng", "admin"))
		require.NoError(t, err)

		assert.Equal(t, []string{permUsersRead}, m.InheritedFromRole.Sorted())
		assert.Empty(t, m.InheritedFromDept)
		assert.Equal(t, []string{permJobsPost, permUsersRead}, m.Selected.Sorted())
		assert.Equal(t, Badge{Role: true, Bold: true}, entryFor(t, m, permUsersRead).Badge)
		assert.Equal(t, Badge{}, entryFor(t, m, permJobsPost).Badge)
	})

	t.Run("without parent role", func(t *testing.T) {
		m, err := r.Load(context.Background(), department("eng", ""))
		require.NoError(t, err)

		assert.Empty(t, m.InheritedFromRole)
		assert.Equal(t, []string{permJobsPost}, m.Selected.Sorted())
	})
}

func TestLoadUser(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead, permUsersEdit)
	s.grant(department("eng", ""), true, permJobsPost)
	s.grant(user("u1"), true, permInvoices)
	s.grant(user("u1"), false, permUsersEdit)
	s.hire("acme", "u1", "admin", "eng")
	r := NewResolver(s)

	m, err := r.Load(context.Background(), user("u1"))
	require.NoError(t, err)

	assert.Equal(t, []string{permUsersEdit, permUsersRead}, m.InheritedFromRole.Sorted())
	assert.Equal(t, []string{permJobsPost}, m.InheritedFromDept.Sorted())
	assert.Equal(t, []string{permInvoices, permJobsPost, permUsersRead}, m.Selected.Sorted())
	assert.Equal(t, []string{permUsersEdit}, m.Denied.Sorted())

	assert.Equal(t, Badge{Role: true, Bold: true}, entryFor(t, m, permUsersEdit).Badge)
	assert.Equal(t, Badge{Dept: true, Bold: true}, entryFor(t, m, permJobsPost).Badge)
	assert.Equal(t, Badge{}, entryFor(t, m, permInvoices).Badge)
	assert.False(t, entryFor(t, m, permUsersEdit).Selected)
}

func TestLoadUserWithoutEmployeeRecord(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead)
	s.grant(user("u2"), true, permLabs)
	r := NewResolver(s)

	m, err := r.Load(context.Background(), user("u2"))
	require.NoError(t, err)

	assert.Empty(t, m.InheritedFromRole)
	assert.Empty(t, m.InheritedFromDept)
	assert.Equal(t, []string{permLabs}, m.Selected.Sorted())
}

func TestLoadScopesToOrganizationCatalog(t *testing.T) {
	s := fixtureStore()
	globexAdmin := Target{Type: TargetRole, ID: "admin", OrganizationID: "globex"}
	s.grant(globexAdmin, true, permUsersRead, permInvoices)
	r := NewResolver(s)

	m, err := r.Load(context.Background(), globexAdmin)
	require.NoError(t, err)

	assert.Equal(t, []string{permUsersRead}, m.Selected.Sorted())
	require.Len(t, m.Groups, 1)
	assert.Equal(t, "General (Core)", m.Groups[0].Label)
	require.Len(t, m.Groups[0].Entries, 1)
}

func TestLoadInvalidTarget(t *testing.T) {
	r := NewResolver(fixtureStore())

	for _, target := range []Target{
		{Type: TargetRole, OrganizationID: "acme"},
		{Type: TargetUser, ID: "u1"},
		{Type: TargetType(9), ID: "x", OrganizationID: "acme"},
	} {
		_, err := r.Load(context.Background(), target)
		assert.ErrorIs(t, err, ErrInvalidTarget)
	}
}

func TestLoadFailsWhenAnyLookupFails(t *testing.T) {
	store := &MockStore{}
	store.On("Catalog", mock.Anything, "acme").Return([]Permission{{ID: permUsersRead}}, nil)
	store.On("UserSources", mock.Anything, "acme", "u1").Return(nil, errors.New("connection reset"))

	m, err := NewResolver(store).Load(context.Background(), user("u1"))
	assert.Nil(t, m)
	assert.ErrorContains(t, err, "connection reset")
}

func TestSaveRoleRoundTrip(t *testing.T) {
	s := fixtureStore()
	r := NewResolver(s)
	ctx := context.Background()

	_, err := r.Save(ctx, role("admin"), []string{permUsersRead, permJobsPost, permUsersRead})
	require.NoError(t, err)

	m, err := r.Load(ctx, role("admin"))
	require.NoError(t, err)
	assert.Equal(t, []string{permJobsPost, permUsersRead}, m.Selected.Sorted())
}

func TestSaveReplacesRows(t *testing.T) {
	s := fixtureStore()
	r := NewResolver(s)
	ctx := context.Background()

	_, err := r.Save(ctx, role("admin"), []string{permUsersRead, permUsersEdit})
	require.NoError(t, err)
	_, err = r.Save(ctx, role("admin"), []string{permUsersEdit})
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{permUsersEdit: true}, s.rows(role("admin")))

	_, err = r.Save(ctx, role("admin"), nil)
	require.NoError(t, err)
	assert.Empty(t, s.rows(role("admin")))
}

func TestSaveUserWritesDenials(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead, permUsersEdit)
	s.grant(department("eng", ""), true, permJobsPost)
	s.hire("acme", "u1", "admin", "eng")
	r := NewResolver(s)
	ctx := context.Background()

	result, err := r.Save(ctx, user("u1"), []string{permUsersRead, permInvoices})
	require.NoError(t, err)

	assert.Equal(t, []string{permInvoices, permUsersRead}, result.Granted)
	assert.Equal(t, []string{permJobsPost, permUsersEdit}, result.Denied)
	assert.Equal(t, map[string]bool{
		permUsersRead: true,
		permInvoices:  true,
		permUsersEdit: false,
		permJobsPost:  false,
	}, s.rows(user("u1")))

	effective, err := r.Effective(ctx, "acme", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{permInvoices, permUsersRead}, effective.Sorted())
}

func TestSaveUserLoadRoundTripKeepsDenials(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead, permUsersEdit)
	s.hire("acme", "u1", "admin", "")
	r := NewResolver(s)
	ctx := context.Background()

	_, err := r.Save(ctx, user("u1"), []string{permUsersRead})
	require.NoError(t, err)
	before := s.rows(user("u1"))

	m, err := r.Load(ctx, user("u1"))
	require.NoError(t, err)
	_, err = r.Save(ctx, user("u1"), m.Selected.Sorted())
	require.NoError(t, err)

	assert.Equal(t, before, s.rows(user("u1")))
}

func TestSaveUserExplicitAllowNeedsNoInheritance(t *testing.T) {
	s := fixtureStore()
	r := NewResolver(s)
	ctx := context.Background()

	result, err := r.Save(ctx, user("u3"), []string{permLabs})
	require.NoError(t, err)
	assert.Empty(t, result.Denied)

	ok, err := r.Check(ctx, "acme", "u3", "labs.beta")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSaveDepartmentKeepsInheritedSelection(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead)
	r := NewResolver(s)
	ctx := context.Background()

	m, err := r.Load(ctx, department("eng", "admin"))
	require.NoError(t, err)
	selected := append(m.Selected.Sorted(), permJobsPost)

	result, err := r.Save(ctx, department("eng", "admin"), selected)
	require.NoError(t, err)
	assert.Empty(t, result.Denied)
	assert.Equal(t, map[string]bool{permUsersRead: true, permJobsPost: true}, s.rows(department("eng", "")))
}

func TestSaveRejectsUnknownPermission(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead)
	r := NewResolver(s)

	_, err := r.Save(context.Background(), role("admin"), []string{permUsersEdit, "p-other-org"})
	assert.ErrorIs(t, err, ErrUnknownPermission)
	assert.Equal(t, map[string]bool{permUsersRead: true}, s.rows(role("admin")))
}

func TestSaveRollsBackOnFailure(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead)
	s.failInsert = errors.New("disk full")
	r := NewResolver(s)

	_, err := r.Save(context.Background(), role("admin"), []string{permUsersEdit})
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, map[string]bool{permUsersRead: true}, s.rows(role("admin")))
}

func TestSaveStopsAtFirstFailure(t *testing.T) {
	store := &MockStore{}
	store.On("Transaction", mock.Anything, mock.Anything).Return(nil)
	store.On("Catalog", mock.Anything, "acme").Return([]Permission{{ID: permUsersRead}}, nil)
	store.On("DeleteGrants", mock.Anything, role("admin")).Return(errors.New("lock timeout"))

	_, err := NewResolver(store).Save(context.Background(), role("admin"), []string{permUsersRead})
	assert.ErrorContains(t, err, "lock timeout")
	store.AssertNotCalled(t, "InsertGrants", mock.Anything, mock.Anything, mock.Anything)
}

func TestEffectiveIgnoresDenialsOfNonInherited(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead)
	s.grant(user("u1"), false, permUsersRead, permLabs)
	s.grant(user("u1"), true, permInvoices)
	s.hire("acme", "u1", "admin", "")

	effective, err := NewResolver(s).Effective(context.Background(), "acme", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{permInvoices}, effective.Sorted())
}

func TestEffectiveCache(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead)
	s.hire("acme", "u1", "admin", "")
	cache := newMemCache()
	r := NewResolver(s).WithCache(cache)
	ctx := context.Background()

	first, err := r.Effective(ctx, "acme", "u1")
	require.NoError(t, err)
	calls := s.catalogs

	second, err := r.Effective(ctx, "acme", "u1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, s.catalogs)

	_, err = r.Save(ctx, role("admin"), []string{permUsersRead, permUsersEdit})
	require.NoError(t, err)

	third, err := r.Effective(ctx, "acme", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{permUsersEdit, permUsersRead}, third.Sorted())
}

func TestEffectiveRacingSaveIsNotCached(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead, permUsersEdit)
	s.hire("acme", "u1", "admin", "")
	cache := newMemCache()
	r := NewResolver(s).WithCache(cache)
	ctx := context.Background()

	var once sync.Once
	s.afterSources = func() {
		once.Do(func() {
			s.grant(user("u1"), false, permUsersEdit)
			assert.NoError(t, cache.InvalidateOrganization(ctx, "acme"))
		})
	}

	stale, err := r.Effective(ctx, "acme", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{permUsersEdit, permUsersRead}, stale.Sorted())
	assert.Equal(t, 1, cache.dropped)

	fresh, err := r.Effective(ctx, "acme", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{permUsersRead}, fresh.Sorted())
}

func TestCheckReadsCatalogOnce(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead)
	s.hire("acme", "u1", "admin", "")
	r := NewResolver(s).WithCache(newMemCache())
	ctx := context.Background()

	ok, err := r.Check(ctx, "acme", "u1", "users.read")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, s.catalogs, "miss")

	ok, err = r.Check(ctx, "acme", "u1", "users.read")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, s.catalogs, "hit")
}

func TestCheck(t *testing.T) {
	s := fixtureStore()
	s.grant(role("admin"), true, permUsersRead, permUsersEdit)
	s.grant(user("u1"), false, permUsersEdit)
	s.hire("acme", "u1", "admin", "")
	r := NewResolver(s)
	ctx := context.Background()

	ok, err := r.Check(ctx, "acme", "u1", "users.read")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Check(ctx, "acme", "u1", "users.edit")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.Check(ctx, "acme", "u1", "nope")
	assert.ErrorIs(t, err, ErrUnknownPermission)
}

func TestObserver(t *testing.T) {
	observer := &MockObserver{}
	observer.On("Observe", "load", TargetRole, nil, mock.AnythingOfType("float64")).Once()
	observer.On("Observe", "save", TargetRole, mock.Anything, mock.AnythingOfType("float64")).Once()

	r := NewResolver(fixtureStore()).WithObserver(observer)
	_, err := r.Load(context.Background(), role("admin"))
	require.NoError(t, err)
	_, err = r.Save(context.Background(), role("admin"), []string{"unknown"})
	require.Error(t, err)

	observer.AssertExpectations(t)
}
