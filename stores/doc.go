// Package stores contains implementations of geolib.Store.
//
// Every store keeps at most one record per canonical address. Record ID
// is assigned on first insert and survives replacements of the record.
package stores
