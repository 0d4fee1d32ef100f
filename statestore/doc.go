// Package statestore provides the small key-value capability the
// authentication flow consumes: string get/set with a TTL.
//
// Two uses inside this library:
//
//   - Hosts can park the kept half of a CSRF token server-side when a cookie
//     is not an option, keyed by the session identifier.
//   - The flow's optional replay protection marks sent state values as
//     consumed so a callback cannot be replayed within the token's lifetime.
//
// Two implementations ship with the package: an in-process store backed by
// go-cache for single-instance hosts, and a Redis store for hosts running
// more than one replica behind a load balancer.
package statestore
