// Package site is the HTTP front-end of the Comp-V5 website.
//
// Pages are rendered server-side from embedded templates. Every remote
// resource a page needs (README, changelog, release list, repository list,
// latest tags) is fetched through one shared [cache.Cache], so panels on
// the same or different pages never download the same URL twice. Panels
// are fetched concurrently and fail independently: a panel whose fetch
// fails renders "Unable to load <panel>." while the rest of the page
// renders normally.
//
// Routes:
//
//	GET  /, /index.html, /changelog.html, /config.html,
//	     /downloads.html, /releases.html    pages
//	POST /config                           generated config block (text/plain)
//	GET  /download/{kind}                  download popup data (JSON)
//	GET  /api/readme, /api/changelog       rendered fragments
//	GET  /api/cache                        cache statistics (JSON)
//	GET|POST /clear-site-data              drop cache and cookies, reload
//
// Page requests carry the latest release tag in the "version" cookie. When
// the cookie is missing or stale the server sets it and redirects to the
// same page with a v=<tag> parameter, which also becomes part of the cache
// key of every raw-content fetch.
package site
