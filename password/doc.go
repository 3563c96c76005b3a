// Package password verifies stored password hashes across two schemes and
// produces hashes in the current one.
//
// # Formats
//
// Current (Argon2id, PHC string):
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Legacy (Werkzeug PBKDF2, read-only):
//
//	pbkdf2:<digest>:<iterations>$<salt>$<hexdigest>
//
// [Hasher.NeedsRehash] reports true for every legacy hash and for Argon2id
// hashes produced with weaker parameters, so the caller can migrate the record
// after the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length, confirmation) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other agencyAuth package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
