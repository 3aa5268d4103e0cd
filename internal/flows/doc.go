// Package flows contains pure orchestrators for every Engine operation.
//
// Each Run* function takes a typed dependency struct and returns a result carrying a
// failure kind instead of a host-level error, so the root package decides error mapping,
// metrics and audit in one place.
//
// # Architecture boundaries
//
// Flows coordinate the token codec, the principal and grant stores, the module catalog and
// the rate limiter. They own none of these; the Engine does.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import bitguard (to avoid import cycles).
//   - Perform I/O directly; all I/O goes through dependency interfaces.
package flows
