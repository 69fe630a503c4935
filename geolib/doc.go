// This package provides a set of structs and functions which are used
// to resolve geolocation of IP addresses and URLs, persist results and
// serve them back without hammering an external provider.
//
// geolib is core of the geostash project. You can treat the rest of the
// application as an _example_ on how to use this library: how to pass
// parameters from HTTP requests, how to generate responses, how to
// implement providers and stores.
//
// Everything starts with a Normalizer. It takes a raw string (an IP
// literal or a URL) and produces an Address: validated and canonical
// IP which is used as a key for everything else.
//
// Orchestrator is a main entity of the geolib. It decides if a record
// can be served from the Store, if Provider has to be queried, and what
// to do if Provider fails. Every returned GeolocationRecord carries a
// Source so callers know if data is fresh, cached or a stale fallback.
//
// Service is a thin layer on top which accepts requests in shape of
// 'ip address or url' and can act as a backend for http.Handler.
package geolib
