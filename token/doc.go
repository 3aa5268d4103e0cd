// Package token encodes and verifies the compact three-segment HS256 credentials issued by
// bitguard. The codec is pure: it holds a secret and a clock and never touches storage.
package token
