// Package jar implements an in-memory cookie jar for RPC clients.
// It stores cookies received via set-cookie response headers and
// returns the matching name=value pairs to attach to later requests
// against the same origin. The jar enforces an original-server-only
// policy: a cookie is stored and served only for the exact host that
// set it, with no subdomain sharing in either direction.
//
// The jar holds no background goroutines; expired cookies are dropped
// lazily when a store or lookup touches them. All methods are safe for
// concurrent use.
package jar
