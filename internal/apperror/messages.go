package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeContractNotDeployed:      "No contract code at the configured address",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeGasEstimationFailed:      "Gas estimation failed",

	// Registry errors
	CodeUnknownToken: "Token is not registered",
	CodeUnknownVenue: "Venue is not registered",

	// Price verification errors
	CodeQuoteFailed:    "Failed to get swap quote",
	CodeStalePrice:     "Live spread below minimum threshold",
	CodePriceFeedError: "Spot price feed error",

	// Transaction build errors
	CodeEncodingFailed:   "No call encoder variant accepted the arguments",
	CodeInvalidTradeSize: "Invalid trade size",

	// Transaction submission errors
	CodeInsufficientFunds: "Account balance below required gas and value",
	CodeNonceConflict:     "Transaction rejected for a stale nonce",
	CodeTxUnderpriced:     "Transaction gas price too low for the network",
	CodeTxAlreadyKnown:    "Transaction already known to the node",
	CodeTxSendFailed:      "Transaction broadcast failed",

	// Confirmation errors
	CodeTxReverted:          "Transaction mined but execution reverted",
	CodeConfirmationTimeout: "No receipt within the confirmation timeout",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketReconnecting:    "WebSocket reconnecting",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Cache errors
	CodeCacheMiss:    "Cache miss",
	CodeCacheExpired: "Cache entry expired",

	// History storage errors
	CodeStorageOpenFailed:      "Failed to open history storage",
	CodeStorageOperationFailed: "History storage operation failed",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
