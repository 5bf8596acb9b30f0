package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Schema Errors (W001-W099)
	// ============================================

	"W001": {
		Category: CategorySchema,
		Message:  "Schema description missing",
		Detail:   "The bundled schema description could not be found. The decode pipeline is unusable without it.",
	},
	"W002": {
		Category: CategorySchema,
		Message:  "Schema description malformed",
		Detail:   "The schema description failed to parse. Check for truncated or corrupted message definitions.",
	},
	"W003": {
		Category: CategorySchema,
		Message:  "Unknown message type",
		Detail:   "The requested message type is not present in the loaded schema.",
	},

	// ============================================
	// Frame / Protocol Errors (W100-W199)
	// ============================================

	"W101": {
		Category: CategoryProtocol,
		Message:  "Frame decode failed",
		Detail:   "The outer websocket envelope could not be decoded. The frame is dropped; the session stays open.",
	},
	"W102": {
		Category: CategoryProtocol,
		Message:  "Payload decompression failed",
		Detail:   "The frame payload carries the gzip magic prefix but did not decompress cleanly.",
	},
	"W103": {
		Category: CategoryProtocol,
		Message:  "Envelope decode failed",
		Detail:   "The inner response container could not be decoded from the frame payload.",
	},

	// ============================================
	// Transport Errors (W200-W299)
	// ============================================

	"W201": {
		Category: CategoryTransport,
		Message:  "Websocket handshake rejected",
		Detail:   "The push endpoint refused the upgrade request. Retry policy is the caller's responsibility.",
	},
	"W202": {
		Category: CategoryTransport,
		Message:  "Session not open",
		Detail:   "The operation requires an open transport session.",
	},

	// ============================================
	// Stream Errors (W300-W399)
	// ============================================

	"W301": {
		Category: CategoryStream,
		Message:  "Stream is not live",
		Detail:   "The pre-flight status check reported the stream as ended. No socket was opened.",
	},
	"W302": {
		Category: CategoryStream,
		Message:  "Stream ended",
		Detail:   "The platform signalled the room closed. Reconnection is disabled for this connection.",
	},
	"W303": {
		Category: CategoryStream,
		Message:  "Unsupported platform",
		Detail:   "No connection variant is registered for the requested platform.",
	},

	// ============================================
	// Signer Errors (W400-W499)
	// ============================================

	"W401": {
		Category: CategorySigner,
		Message:  "Signing failed",
		Detail:   "The remote signing collaborator reported an error for this target.",
	},
	"W402": {
		Category: CategorySigner,
		Message:  "Signer timeout",
		Detail:   "The remote signing collaborator did not answer in time.",
	},
	"W403": {
		Category: CategorySigner,
		Message:  "Signer asked for retry",
		Detail:   "The remote signing collaborator asked the client to retry later.",
	},
	"W404": {
		Category: CategorySigner,
		Message:  "Target not live",
		Detail:   "The remote signing collaborator reported the target as offline.",
	},
	"W405": {
		Category: CategorySigner,
		Message:  "Signer plugin missing",
		Detail:   "The remote signing collaborator has no signing plugin installed.",
	},

	// ============================================
	// Config Errors (W500-W599)
	// ============================================

	"W501": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file failed to parse or contains invalid values.",
	},
}

// Codes for the error taxonomy, named for use at call sites.
const (
	CodeSchemaMissing    = "W001"
	CodeSchemaMalformed  = "W002"
	CodeUnknownType      = "W003"
	CodeFrameDecode      = "W101"
	CodeDecompress       = "W102"
	CodeEnvelopeDecode   = "W103"
	CodeHandshake        = "W201"
	CodeSessionNotOpen   = "W202"
	CodeStreamNotLive    = "W301"
	CodeStreamEnded      = "W302"
	CodeBadPlatform      = "W303"
	CodeSignFailure      = "W401"
	CodeSignTimeout      = "W402"
	CodeSignRetry        = "W403"
	CodeSignNoLive       = "W404"
	CodeSignNoPlugin     = "W405"
	CodeInvalidConfig    = "W501"
)
