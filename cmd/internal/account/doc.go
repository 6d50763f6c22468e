// Package account implements user registration and credential login for
// sonar. It owns the users table; session tokens are handled by the token
// package.
package account
