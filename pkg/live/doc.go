// Package live turns bare target identifiers into decoded event streams.
// The Orchestrator owns the connection registry and the reconnect policy;
// platform variants implement the Conn capability surface and are selected
// by Platform at registration time.
package live
