// Package config provides configuration management for permctl.
//
// Configuration is loaded from defaults, then the YAML file at
// $PERMCTL_CONFIG_PATH/permctl.yml (default /etc/orgperm/permctl.yml), then
// environment variables. Each attribute remembers which of the three it
// came from; "permctl configuration show" prints them.
//
// # Key Configuration Options
//
//   - PERMCTL_LOG_LEVEL: Logging verbosity
//   - PERMCTL_JWT_SECRET: Operator token signing key (environment only)
//   - PERMCTL_REDIS_URL: Enables the effective-set cache
//   - PERMCTL_RATE_LIMIT_RPS, PERMCTL_RATE_LIMIT_BURST: Write limits
//   - DATABASE_URL: Database connection
//   - PORT: Server listen port
package config
