// Package cache memoises remote resources by URL.
//
// A Cache issues an HTTP GET for a URL the first time it is requested,
// decodes the response with a caller-supplied DecodeFunc and keeps the
// decoded payload for the lifetime of the Cache. Failed fetches are logged
// and never stored, so the next request for the same URL goes back to the
// network. Concurrent misses for the same URL share one in-flight request.
//
// There is no eviction, expiry or size bound: construct a Cache per site
// lifetime and call Clear (or drop it) to start over.
package cache
