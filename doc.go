// Geostash is a service which answers where an IP address or a URL is
// located and keeps every answer it has ever got.
//
// Idea is simple: you ask about 8.8.8.8 or https://www.google.com. If
// there is a record for this address in a database, you get it back
// immediately. Otherwise an external geolocation provider is asked,
// its response is stored and returned. If provider is rate limited or
// down, the last known record is served instead.
//
// Tool itself is organized into 3 logical parts:
//
// # Geolib
//
// geolib is a main package of the application which contains address
// normalization, resolution orchestration and HTTP API. It defines
// Provider and Store interfaces and knows nothing about concrete
// implementations.
//
// # Providers
//
// This package has clients of online geolocation services: ipstack.com
// and ipinfo.io.
//
// # Stores
//
// Implementations of a record store: in-memory map, SQLite and
// PostgreSQL.
//
// A main package itself wires all of them together and provides CLI.
// Resulting binary starts http server and you can use it in your
// infrastructure as is.
package main
