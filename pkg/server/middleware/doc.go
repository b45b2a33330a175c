// Package middleware holds the HTTP middleware of the permission API:
// bearer token authentication, request ids and write rate limiting.
package middleware
