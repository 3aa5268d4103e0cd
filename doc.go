// Package bitguard issues, verifies, refreshes and revokes HS256 access tokens and gates
// requests on per-module permission bitmasks.
//
// An [Engine] is built once through [Builder] and is safe for concurrent use. It owns
// the token codec, the argon2id hasher, optional Redis throttles, metrics and the audit
// dispatcher; principals, grants and module metadata come from the store interfaces in
// package store.
//
// # Token lifecycle
//
// Access tokens are stateless and live until expires_at. Refresh tokens carry
// token_kind "refresh" and are valid only while they equal the subject's persisted
// refresh slot. [Engine.Refresh] rotates the slot with an atomic compare-and-swap, so of
// two concurrent refreshes with the same token at most one succeeds and the other
// observes [ErrTokenRevoked]. [Engine.Revoke] clears the slot; outstanding access
// tokens keep working until they expire.
//
// # Authorization
//
// [Engine.Authorize] checks, in order: admin-only module, credential presence,
// credential validity, grant row presence, and the bit required by the HTTP verb.
// Denials are *[AuthError] values carrying a stable Code and HTTP Status.
package bitguard
