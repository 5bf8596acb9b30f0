// Package schema loads and caches the webcast wire schema: the mapping from
// message-type name to a binary codec able to encode and decode that type.
//
// The schema is parsed once from a bundled description (schema.txt) and is
// immutable afterwards; every session shares the same read-only instance.
// Decoding is driven by protobuf wire primitives and tolerates unknown
// fields, which is how the pipeline survives platform-side schema evolution.
package schema
