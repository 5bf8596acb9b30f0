// Package protocol implements the webcast frame codec: outer envelope
// decode, optional gzip decompression, inner envelope decode driven by the
// schema registry, and outbound ack encoding.
//
// The codec is whitelist-based: only known submessage types are decoded into
// records, so wire-format churn on the platform side stays isolated from
// everything downstream.
package protocol
