package errors

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalServerError represents a generic internal server error.
	GeneralInternalServerError ErrorCode = "general_internal_server_error"
	// GeneralBadRequestError represents a generic bad request error.
	GeneralBadRequestError ErrorCode = "general_bad_request_error"
	// GeneralNotFoundError represents a generic not found error.
	GeneralNotFoundError ErrorCode = "general_not_found_error"
	// GeneralRepositoryError represents a generic repository error.
	GeneralRepositoryError ErrorCode = "general_repository_error"

	// ErrInsufficientBalance represents an error when a portfolio does not hold
	// enough available cash for the requested operation.
	ErrInsufficientBalance ErrorCode = "insufficient_balance"
	// ErrInsufficientQuantity represents an error when a holding does not carry
	// enough unreserved shares for the requested operation.
	ErrInsufficientQuantity ErrorCode = "insufficient_quantity"
	// ErrNegativeAmount represents an error when a money or quantity value is
	// constructed from a negative number.
	ErrNegativeAmount ErrorCode = "negative_amount"

	// ErrOrderNotFound represents an error when an order cannot be located.
	ErrOrderNotFound ErrorCode = "order_not_found"
	// ErrStockNotFound represents an error when a stock symbol is unknown.
	ErrStockNotFound ErrorCode = "stock_not_found"
	// ErrHoldingNotFound represents an error when a portfolio does not own the stock.
	ErrHoldingNotFound ErrorCode = "holding_not_found"
	// ErrInvalidOrderState represents an error when an order is in a state the
	// requested transition does not allow.
	ErrInvalidOrderState ErrorCode = "invalid_order_state"
	// ErrQuantityExceedsListing represents an error when a requested quantity is
	// over the stock's tradable ceiling.
	ErrQuantityExceedsListing ErrorCode = "quantity_exceeds_listing"
	// ErrTradeAlreadyExists represents a duplicate trade for a buy/sell line pair.
	ErrTradeAlreadyExists ErrorCode = "trade_already_exists"

	// RedisConfigError represents an error when the Redis configuration is invalid or nil.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisDisconnectionError represents an error when disconnecting from Redis.
	RedisDisconnectionError ErrorCode = "redis_disconnection_error"
	// RedisPingError represents an error when pinging Redis.
	RedisPingError ErrorCode = "redis_pinging_error"
	// RedisGetError represents an error when getting a value from Redis.
	RedisGetError ErrorCode = "redis_get_error"
	// RedisSetError represents an error when setting a value in Redis.
	RedisSetError ErrorCode = "redis_set_error"
	// RedisDelError represents an error when deleting a value from Redis.
	RedisDelError ErrorCode = "redis_del_error"
	// RedisSetNXError represents an error when setting a value in Redis with SetNX.
	RedisSetNXError ErrorCode = "redis_setnx_error"
	// RedisZAddError represents an error when adding members to a sorted set in Redis.
	RedisZAddError ErrorCode = "redis_zadd_error"
	// RedisZPopError represents an error when popping members from a sorted set in Redis.
	RedisZPopError ErrorCode = "redis_zpop_error"
	// RedisZRemError represents an error when removing members from a sorted set in Redis.
	RedisZRemError ErrorCode = "redis_zrem_error"
	// RedisZCardError represents an error when reading a sorted set size from Redis.
	RedisZCardError ErrorCode = "redis_zcard_error"
	// RedisEvalError represents an error when evaluating a script in Redis.
	RedisEvalError ErrorCode = "redis_eval_error"
)
