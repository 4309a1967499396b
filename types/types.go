package types

import (
	"github.com/go-errors/errors"
)

// Bot is the lifecycle surface consumed by an external supervisor.
type Bot interface {
	// Init prepares the bot for its first tick.
	Init() error

	// Reset returns the bot to a fresh, pre-init state.
	Reset()

	// StartIntervalLoop starts the polling loop.
	StartIntervalLoop(intervalMs uint64)

	// HealthCheck returns true if the bot has completed a tick within its
	// freshness window. Used for liveness monitoring.
	HealthCheck() bool
}

type TxType int

const (
	TxTypeFill TxType = iota
	TxTypeTrigger
	TxTypeSettlePnl
)

func (value TxType) String() string {
	switch value {
	case TxTypeFill:
		return "fill"
	case TxTypeTrigger:
		return "trigger"
	case TxTypeSettlePnl:
		return "settlePnl"
	default:
		return "unknown"
	}
}

type JitoStrategy int

const (
	JitoOnly JitoStrategy = iota
	NonJitoOnly
	Hybrid
)

func (value JitoStrategy) String() string {
	switch value {
	case JitoOnly:
		return "jito-only"
	case NonJitoOnly:
		return "non-jito-only"
	case Hybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

func ParseJitoStrategy(name string) (JitoStrategy, error) {
	switch name {
	case "jito-only":
		return JitoOnly, nil
	case "non-jito-only", "":
		return NonJitoOnly, nil
	case "hybrid":
		return Hybrid, nil
	default:
		return NonJitoOnly, errors.Errorf("unknown jito strategy %q", name)
	}
}

type ErrorKind int

const (
	ErrorKindSdk ErrorKind = iota
	ErrorKindJitter
	ErrorKindGeneric
)

func (value ErrorKind) String() string {
	switch value {
	case ErrorKindSdk:
		return "sdk"
	case ErrorKindJitter:
		return "jitter"
	default:
		return "generic"
	}
}

// BotError classifies failures so the orchestrator can decide how far the
// failure reaches. All three kinds are candidate-scoped.
type BotError struct {
	Kind ErrorKind
	Err  error
}

func (e *BotError) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *BotError) Unwrap() error {
	return e.Err
}

func NewSdkError(err error) *BotError {
	return &BotError{Kind: ErrorKindSdk, Err: errors.Wrap(err, 1)}
}

func NewJitterError(err error) *BotError {
	return &BotError{Kind: ErrorKindJitter, Err: errors.Wrap(err, 1)}
}

func NewGenericError(reason string) *BotError {
	return &BotError{Kind: ErrorKindGeneric, Err: errors.New(reason)}
}

// KindOf reports the classification of err, defaulting to generic for
// errors produced outside the taxonomy.
func KindOf(err error) ErrorKind {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr.Kind
	}
	return ErrorKindGeneric
}
