// Package storage provides interfaces and shared types for OAuth credential persistence.
//
// The storage package defines the core storage interfaces used throughout the oauthcore library:
//   - ClientStore: Manages registered OAuth clients and secret verification
//   - CodeStore: Manages authorization codes, including atomic single-use consumption
//   - AccessTokenStore: Manages opaque access tokens
//   - RefreshTokenStore: Manages refresh tokens, rotation lineage, and token families
//
// Implementations are provided in subpackages:
//   - storage/memory: In-memory storage for development and testing
//   - storage/valkey: Valkey/Redis-compatible distributed storage for production
package storage
