// Package authapi exposes sonar's account and session endpoints over HTTP:
// registration, login, logout, and the authenticated profile view. It maps
// the token authority's error kinds onto the wire contract (401 for
// malformed requests, 403 for unknown tokens, 500 for store faults).
package authapi
