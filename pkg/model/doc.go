// Package model defines the database models for the permission matrix.
//
// # Catalog
//
//   - Permission: a capability, identified by id and key, grouped by suite and category
//   - OrganizationPermission: the allow-list that scopes the catalog per organization
//
// # Grants
//
//   - RoleGrant: role_permissions
//   - DepartmentGrant: department_permissions
//   - UserGrant: user_permissions, where is_allowed=false is a denial
//
// # Directory
//
//   - Role, Department: named groupings inside an organization
//   - Employee: a user's role and department assignment
//
// Every grant and directory row carries organization_id; no query is made
// without it.
package model
