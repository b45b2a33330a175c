package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
organization: acme
permissions:
  - {id: p1, key: employees.view, name: View employees, suite: general, category: Employees}
  - {id: p2, key: jobs.create, name: Create jobs, suite: hiring, category: Jobs}
  - {id: p3, key: invoices.view, name: View invoices, suite: finance, category: Invoices}
roles:
  - id: manager
    name: Manager
    permissions: [employees.view, jobs.create]
departments:
  - id: accounting
    parent_role: manager
    permissions: [p3]
employees:
  - {user: u1, name: Ada, role: manager, department: accounting}
users:
  - id: u1
    permissions: [employees.view, invoices.view]
`

func TestParse(t *testing.T) {
	m, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "acme", m.Organization)
	assert.Len(t, m.Permissions, 3)
	assert.Equal(t, "general", m.Permissions[0].Suite)
	assert.Equal(t, "manager", m.Departments[0].ParentRole)
	assert.Equal(t, "accounting", m.Employees[0].Department)
	assert.Equal(t, 3, m.Targets())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   string
	}{
		{
			name:  "empty document",
			input: "",
			err:   "manifest is empty",
		},
		{
			name:  "unknown field",
			input: "organization: acme\ngroups: []\n",
			err:   "field groups not found",
		},
		{
			name:  "missing organization",
			input: "roles: [{id: r1}]\n",
			err:   "organization is required",
		},
		{
			name:  "incomplete permission",
			input: "organization: acme\npermissions: [{id: p1, key: a}]\n",
			err:   "permissions[0] needs id, key and name",
		},
		{
			name:  "duplicate permission key",
			input: "organization: acme\npermissions: [{id: p1, key: a, name: A}, {id: p2, key: a, name: B}]\n",
			err:   `duplicate permission key "a"`,
		},
		{
			name:  "duplicate role",
			input: "organization: acme\nroles: [{id: r1}, {id: r1}]\n",
			err:   `duplicate role "r1"`,
		},
		{
			name:  "user without id",
			input: "organization: acme\nusers: [{permissions: []}]\n",
			err:   "user #1 has no id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestTargetsSkipsOmittedPermissions(t *testing.T) {
	m, err := Parse(strings.NewReader(`
organization: acme
roles:
  - id: r1
  - id: r2
    permissions: []
users:
  - id: u1
`))
	require.NoError(t, err)

	assert.Nil(t, m.Roles[0].Permissions)
	assert.NotNil(t, m.Roles[1].Permissions)
	assert.Equal(t, 1, m.Targets())
}

func TestResolverMapsKeysToIDs(t *testing.T) {
	m, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	resolve := m.resolver()
	assert.Equal(t, []string{"p1", "p3", "legacy"}, resolve([]string{"employees.view", "p3", "legacy"}))
}
