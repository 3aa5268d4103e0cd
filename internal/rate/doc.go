// Package rate implements Redis fixed-window counters for login and refresh throttling.
//
// # Window semantics
//
// INCR plus EXPIRE on the first hit of a window. Keys, under the configured prefix:
//   - <prefix>:rl:<identifier>  failed logins per identifier
//   - <prefix>:rli:<ip>         failed logins per client IP
//   - <prefix>:rr:<subject>     refresh attempts per subject
//
// # What this package must NOT do
//
//   - Decide allow/deny for authorization.
//   - Be imported outside the bitguard module.
package rate
