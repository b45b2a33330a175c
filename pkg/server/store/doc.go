// Package store provides storage abstractions for the permission server.
//
// The permission matrix itself is persisted through permission.Store; this
// package holds the remaining server-side stores so endpoints can be tested
// with mocks.
//
// # Implementations
//
//   - gorm: Postgres through GORM, for both permission.Store and HealthStore
//   - redis: the effective-set cache behind permission.Cache
package store
