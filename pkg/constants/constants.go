package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	PoolKey      ContextKey = "pool"
	TxKey        ContextKey = "tx"
	LoggerKey    ContextKey = "logger"
	ParamsKey    ContextKey = "params"
	ActorKey     ContextKey = "actor"
	RequestStart ContextKey = "requestStart"
)

// Validate is the shared validator instance used by DTOs across modules.
var Validate = validator.New(validator.WithRequiredStructEnabled())
