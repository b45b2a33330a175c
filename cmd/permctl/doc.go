// Command permctl runs the organization permission matrix server and the
// tools that manage its database.
//
// # Quick Start
//
//	# Run database migrations
//	permctl db migrate
//
//	# Load the catalog and grants of an organization
//	permctl matrix apply acme.yml
//
//	# Start the server and issue a token for an operator
//	export PERMCTL_JWT_SECRET=$(openssl rand -hex 32)
//	permctl server &
//	permctl wait
//	TOKEN=$(permctl token issue acme ops@acme.io)
//	curl -H "Authorization: Bearer $TOKEN" localhost:8000/organizations/acme/catalog
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - AUDIT_DATABASE_URL: optional database for the audit messages table
//   - PERMCTL_JWT_SECRET: key that signs operator tokens
//   - PERMCTL_CONFIG_PATH: directory holding permctl.yml
//   - PERMCTL_LOG_LEVEL, PERMCTL_REDIS_URL, PERMCTL_AUDIT_ENABLED and the
//     other PERMCTL_* settings listed by "permctl configuration show"
//   - PORT, BIND_ADDRESS: server listen address
//
// Builds tagged embed_migrations carry the SQL migrations in the binary;
// other builds read them from db/migrations or PERMCTL_MIGRATIONS_PATH.
package main
