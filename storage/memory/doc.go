// Package memory provides an in-memory implementation of the storage interfaces.
//
// The memory store keeps all clients, authorization codes, and tokens in
// process-local maps guarded by a mutex, with a background janitor that
// removes expired records. It is intended for development, testing, and
// single-instance deployments; use storage/valkey for anything distributed.
package memory
