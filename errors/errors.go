package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SarahisCode/basebot/pkg/retry"
)

// ErrorClass partitions errors by how the engine should react to them.
type ErrorClass int

const (
	// ErrorTransient marks a temporary fault; retrying may succeed.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid marks bad input or state; retrying cannot help.
	ErrorInvalid
	// ErrorFatal marks an unrecoverable fault; the caller should stop.
	ErrorFatal
)

// String returns the lowercase name of the class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	}
	return "unknown"
}

// Sentinel errors shared across the engine. Callers compare with errors.Is.
var (
	// Endpoint lifecycle.
	ErrAlreadyStarted = errors.New("endpoint already started")
	ErrNotStarted     = errors.New("endpoint not started")
	ErrAlreadyStopped = errors.New("endpoint already stopped")
	ErrShuttingDown   = errors.New("endpoint is shutting down")

	// Connection and transport.
	ErrNoRoom            = errors.New("no room configured")
	ErrNoConnection      = errors.New("no connection available")
	ErrConnectionClosed  = errors.New("connection closed")
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrTransport         = errors.New("transport failure")

	// Protocol frames.
	ErrMalformedFrame = errors.New("malformed frame")
	ErrMissingReply   = errors.New("reply missing expected payload")

	// Server back-pressure.
	ErrThrottled = errors.New("server throttled the command")

	// Configuration.
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrMissingConfig     = errors.New("missing required configuration")
	ErrNoEndpointFactory = errors.New("no endpoint factory configured")

	// Retry budget.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

// Sentinel membership and message patterns behind the Is* predicates. The
// pattern lists catch errors from third-party code (websocket, net) that
// arrive without classification; matching is case-insensitive substring.
var (
	transientSentinels = []error{
		ErrNoConnection,
		ErrConnectionClosed,
		ErrConnectionTimeout,
		ErrTransport,
		ErrThrottled,
		context.DeadlineExceeded,
		context.Canceled,
	}
	transientPatterns = []string{
		"timeout", "connection", "network", "temporary",
		"unavailable", "busy", "retry",
	}

	fatalSentinels = []error{ErrInvalidConfig, ErrMissingConfig}
	fatalPatterns  = []string{
		"fatal", "panic", "invalid config", "missing config", "out of memory",
	}

	invalidSentinels = []error{
		ErrNoRoom,
		ErrMalformedFrame,
		ErrMissingReply,
		ErrNoEndpointFactory,
	}
)

// ClassifiedError carries an explicit class alongside the wrapped error.
// Once present in a chain, the recorded class overrides all heuristics.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error returns Message when set, otherwise the wrapped error's text.
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap exposes the wrapped error to errors.Is and errors.As.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// recordedClass reports the class stored on a ClassifiedError in err's chain.
func recordedClass(err error) (ErrorClass, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return 0, false
}

func matchesAny(err error, sentinels []error) bool {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func messageContains(err error, patterns []string) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range patterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err should be retried. A recorded class wins;
// otherwise known connection sentinels and message patterns decide.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := recordedClass(err); ok {
		return class == ErrorTransient
	}
	return matchesAny(err, transientSentinels) || messageContains(err, transientPatterns)
}

// IsFatal reports whether err should stop processing entirely.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := recordedClass(err); ok {
		return class == ErrorFatal
	}
	return matchesAny(err, fatalSentinels) || messageContains(err, fatalPatterns)
}

// IsInvalid reports whether err stems from bad input. No message patterns
// here: invalid conditions are only recognized explicitly.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := recordedClass(err); ok {
		return class == ErrorInvalid
	}
	return matchesAny(err, invalidSentinels)
}

// Classify resolves err to a single class. Transient is tested first so an
// ambiguous error favors retry; unknown errors default to transient for the
// same reason.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ErrorTransient
	case IsTransient(err):
		return ErrorTransient
	case IsFatal(err):
		return ErrorFatal
	case IsInvalid(err):
		return ErrorInvalid
	}
	return ErrorTransient
}

// newClassified builds a ClassifiedError. Callers outside the package use
// WrapTransient, WrapFatal, or WrapInvalid.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap annotates err as "component.method: action failed: err". It returns
// nil when err is nil so call sites can wrap unconditionally.
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapClass(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(class, wrapped, component, method, wrapped.Error())
}

// WrapTransient wraps err with context and records it as transient.
func WrapTransient(err error, component, method, action string) error {
	return wrapClass(ErrorTransient, err, component, method, action)
}

// WrapFatal wraps err with context and records it as fatal.
func WrapFatal(err error, component, method, action string) error {
	return wrapClass(ErrorFatal, err, component, method, action)
}

// WrapInvalid wraps err with context and records it as invalid.
func WrapInvalid(err error, component, method, action string) error {
	return wrapClass(ErrorInvalid, err, component, method, action)
}

// RetryConfig describes a retry budget in terms of error classification.
// MaxRetries counts additional attempts beyond the first. An empty
// RetryableErrors list admits every transient error; a non-empty list
// restricts retries to the sentinels it names.
type RetryConfig struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []error
}

// DefaultRetryConfig returns the engine's standard budget: three retries
// with exponential backoff from 100ms up to 5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// FixedRetryConfig returns a budget with a constant delay between attempts,
// matching the reconnect profile of the chat protocol: no backoff growth
// and no jitter.
func FixedRetryConfig(maxRetries int, delay time.Duration) RetryConfig {
	return RetryConfig{
		MaxRetries:    maxRetries,
		InitialDelay:  delay,
		MaxDelay:      delay,
		BackoffFactor: 1.0,
	}
}

// ShouldRetry reports whether a failed attempt should run again. attempt is
// zero-based, so it exhausts once attempt reaches MaxRetries.
func (rc RetryConfig) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= rc.MaxRetries || !IsTransient(err) {
		return false
	}
	if len(rc.RetryableErrors) == 0 {
		return true
	}
	return matchesAny(err, rc.RetryableErrors)
}

// ToRetryConfig converts the budget to the retry framework's Config so a
// classification-aware policy can be handed straight to retry.Do. MaxRetries
// becomes MaxAttempts by adding the first attempt. Jitter stays off: the
// protocol's reconnect contract is a fixed inter-attempt delay.
func (rc RetryConfig) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  rc.MaxRetries + 1,
		InitialDelay: rc.InitialDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   rc.BackoffFactor,
		AddJitter:    false,
	}
}

// BackoffDelay returns the delay before the given zero-based attempt:
// InitialDelay grown by BackoffFactor per attempt, capped at MaxDelay.
func (rc RetryConfig) BackoffDelay(attempt int) time.Duration {
	delay := rc.InitialDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * rc.BackoffFactor)
		if delay > rc.MaxDelay {
			return rc.MaxDelay
		}
	}
	return delay
}
