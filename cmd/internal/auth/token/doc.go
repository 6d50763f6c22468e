// Package token implements sonar's session-token authority.
//
// The Authority issues one opaque 64-character key per user (issuing a new
// key invalidates the previous one) and resolves inbound Authorization
// headers of the form `Token <key>` to the owning user through an injected
// Store.
//
// Keys are drawn from the printable ASCII alphabet via the OS random source.
// Uniqueness is enforced twice: a bounded pre-check against the store, and a
// unique constraint on the key column so a write that loses the race is
// retried instead of clobbering another user's key.
package token
