// Package valkey provides a Valkey/Redis-backed implementation of the storage interfaces.
//
// Records are stored as JSON values with TTLs matching their expiry, so
// Valkey itself garbage-collects expired codes and tokens. The two
// security-critical operations, consuming an authorization code and
// rotating a refresh token, run as Lua scripts so the check and the mark
// are a single atomic step even across multiple server instances.
//
// Token family membership is tracked in Valkey sets, which makes revoking
// a whole family on reuse detection a bounded set walk rather than a scan.
package valkey
