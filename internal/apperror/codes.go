package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Execution-specific error codes
const (
	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeContractNotDeployed      Code = "CONTRACT_NOT_DEPLOYED"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"

	// Registry errors
	CodeUnknownToken Code = "UNKNOWN_TOKEN"
	CodeUnknownVenue Code = "UNKNOWN_VENUE"

	// Price verification errors
	CodeQuoteFailed    Code = "QUOTE_FAILED"
	CodeStalePrice     Code = "STALE_PRICE"
	CodePriceFeedError Code = "PRICE_FEED_ERROR"

	// Transaction build errors
	CodeEncodingFailed   Code = "ENCODING_FAILED"
	CodeInvalidTradeSize Code = "INVALID_TRADE_SIZE"

	// Transaction submission errors
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeNonceConflict     Code = "NONCE_CONFLICT"
	CodeTxUnderpriced     Code = "TX_UNDERPRICED"
	CodeTxAlreadyKnown    Code = "TX_ALREADY_KNOWN"
	CodeTxSendFailed      Code = "TX_SEND_FAILED"

	// Confirmation errors
	CodeTxReverted          Code = "TX_REVERTED"
	CodeConfirmationTimeout Code = "CONFIRMATION_TIMEOUT"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketReconnecting    Code = "WEBSOCKET_RECONNECTING"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Cache errors
	CodeCacheMiss    Code = "CACHE_MISS"
	CodeCacheExpired Code = "CACHE_EXPIRED"

	// History storage errors
	CodeStorageOpenFailed      Code = "STORAGE_OPEN_FAILED"
	CodeStorageOperationFailed Code = "STORAGE_OPERATION_FAILED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
