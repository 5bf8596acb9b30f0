// Package transport owns one persistent websocket to the platform's push
// endpoint: connection lifecycle, keep-alive pings, per-frame acks, and
// error propagation to the owning connection.
//
// A session moves Idle -> Connecting -> Open -> Closing -> Closed, with
// Errored terminal from Connecting or Open. Per-frame decode failures are
// surfaced as events and never tear down the session; only socket-level
// failures do.
package transport
