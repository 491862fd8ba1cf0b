// Package content loads and validates the site's JSON content documents.
//
// Every document under the content root has exactly one registered shape
// descriptor. The core components are:
//   - [Loader]: reads a named file fresh on every call, parses it, and
//     checks it against its descriptor, returning a classified [*LoadError]
//     on any failure
//   - [Registry]: the static filename-to-descriptor table, fixed at startup
//   - [ValidateAll]: batch validation over every registered document, used
//     by the contentcheck CLI and at server startup
//   - [Status]: the last batch report, held behind an atomic pointer for
//     lock-free reads by readiness probes and handlers
//   - [Watcher]: optional dev-mode re-validation when files under the
//     content root change
//
// Loads are stateless and independent: no caching, no retries, no shared
// mutable state between calls.
package content
