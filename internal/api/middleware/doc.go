// Package middleware holds the gin middleware shared by every route:
// loopback-only CORS, per-client rate limiting (each page load may run a
// reconciliation tick), request ids and access logging.
package middleware
