// Package redisstore implements the bitguard store contracts on Redis.
//
// # Key layout
//
//	<prefix>:p:<id>            hash: identifier, password_hash, active, refresh_token, refresh_expires_at
//	<prefix>:pi:<identifier>   string: principal id
//	<prefix>:pseq              counter used to allocate principal ids
//	<prefix>:g:<id>            hash: module -> permission mask
//	<prefix>:admin_modules     set of admin-only module names
//
// Every refresh-slot mutation is a Lua script, so the compare-and-swap used by refresh
// rotation is atomic with respect to concurrent callers.
package redisstore
