// Package manifest applies a YAML description of an organization's
// permission setup in one transaction.
//
// A manifest declares catalog entries, which are added to the
// organization's allow-list, roles and departments, employee assignments,
// and the permission sets of roles, departments and users:
//
//	organization: acme
//	permissions:
//	  - {id: p1, key: employees.view, name: View employees, suite: general, category: Employees}
//	roles:
//	  - id: manager
//	    permissions: [employees.view]
//	employees:
//	  - {user: u1, role: manager}
//	users:
//	  - id: u1
//	    permissions: []
//
// Permission references may be keys or ids. A target whose permissions
// list is omitted keeps its grants; an empty list clears them. For users,
// inherited permissions left out of the list are stored as denials.
package manifest
