// Package permission implements the four-bit capability set used by bitguard grants
// and by grant snapshots embedded in access tokens.
//
// # Model
//
// A [Bits] value is a plain integer in the range 0-15 combining [Read], [Create],
// [Update] and [Delete]. All operations are pure functions over that value; there is
// no registry to configure and no dynamic dispatch.
//
// # Architecture boundaries
//
// This package owns the capability algebra, canonical naming, parsing of names and the
// fixed HTTP-method-to-capability mapping.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import bitguard, token, or store.
//   - Interpret module names or decide allow/deny outcomes.
package permission
