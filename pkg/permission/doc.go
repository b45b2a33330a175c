// Package permission resolves an organization's permission matrix.
//
// A permission reaches a user from three places: the user's role, the
// user's department, and explicit per-user rows. Explicit rows either allow
// a permission or deny one the user would otherwise inherit. The effective
// set of a user is
//
//	(role ∪ department ∪ explicit allow) − (denials of inherited permissions)
//
// restricted to the organization's catalog.
//
// # Read path
//
// Resolver.Load returns a Matrix for a role, department or user target: the
// catalog grouped by display suite, the sets inherited from the role and the
// department, and the currently selected set. Store lookups run concurrently.
//
// # Write path
//
// Resolver.Save replaces a target's rows with the selected set in a single
// transaction. For users, every inherited permission left unselected is
// stored as a denial.
//
// # Display
//
// BadgeFor decides how an entry is annotated: a ROLE badge when inherited
// from the role, a DEPT badge when inherited from the department (user
// targets only), and a bold label when inherited at all.
package permission
