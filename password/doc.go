// Package password hashes and verifies principal passwords with Argon2id.
//
// Hashes use the PHC string format with unpadded base64 segments:
//
//	$argon2id$v=19$m=<memory KiB>,t=<passes>,p=<lanes>$<salt>$<key>
//
// Stored parameters are bounded on parse so a tampered record cannot force an arbitrarily
// expensive verification.
package password
