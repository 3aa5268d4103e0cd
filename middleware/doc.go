// Package middleware adapts a bitguard.Engine to net/http.
//
// # Handlers
//
//   - [Authenticate] validates the bearer access token and nothing else.
//   - [RequireModule] runs the full authorization check for one module, deriving the
//     required permission bit from the request method.
//
// Both read the Authorization header, record the client address for audit events and
// store the resulting *bitguard.AuthResult in the request context, where handlers read
// it back with [AuthResultFromContext].
//
// Denials are written by [WriteError] as a JSON body {"error": code, "message": text}
// with the status [bitguard.StatusOf] assigns to the error.
//
// This package makes no decisions of its own. Token parsing, grant lookups and Redis
// access all stay inside the Engine.
package middleware
