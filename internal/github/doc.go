// Package github reads public content for the site from GitHub.
//
// All requests are unauthenticated GETs against the REST API and the
// raw-content host, routed through a shared cache.Cache so that panels
// asking for the same README, changelog or release list during one site
// lifetime cost a single request. Failed fetches surface as errors
// wrapping ErrUnavailable.
package github
