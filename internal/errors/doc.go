// Package errors provides structured errors for the webcast pipeline.
//
// Each failure mode has a stable code (e.g. "W101") registered in
// registry.go, grouped into categories:
//   - schema: the bundled schema description is missing or malformed (fatal)
//   - protocol: per-frame decode failures (recoverable, session stays open)
//   - transport: handshake and socket-level failures
//   - stream: pre-flight rejections and terminal stream end
//   - signer: error codes reported by the remote signing collaborator
//   - config: configuration parsing failures
//
// Structured errors support errors.Is matching by code:
//
//	if errors.Is(err, werrors.New(werrors.CodeStreamNotLive)) { ... }
package errors
