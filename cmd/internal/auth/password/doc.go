// Package password implements sonar's salted password codec.
//
// Passwords are hashed with Argon2i and persisted as strings of the form
// `$argon2$<salt>$<hex hash>$`. Salts are generated independently for each
// password from the OS random source.
//
// The package manages creating, parsing, serializing, and verifying
// credentials in that format; it never touches storage itself.
package password
