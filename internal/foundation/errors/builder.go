package errors

// ErrorBuilder assembles a ClassifiedError. Start from NewError, WrapError or
// one of the category constructors below.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts an error-severity, never-retry error in category.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
	}}
}

// WrapError is NewError with cause attached.
func WrapError(cause error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.err.cause = cause
	return b
}

// of starts an error with its category's default severity and retry strategy.
func of(category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	if p, ok := profiles[category]; ok {
		b.err.severity, b.err.retry = p.severity, p.retry
	}
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	if b.err.context == nil {
		b.err.context = ErrorContext{}
	}
	b.err.context[key] = value
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	b.err.severity = SeverityFatal
	return b
}

func (b *ErrorBuilder) Warning() *ErrorBuilder {
	b.err.severity = SeverityWarning
	return b
}

// Retryable marks the failure as worth another attempt after backoff.
func (b *ErrorBuilder) Retryable() *ErrorBuilder {
	b.err.retry = RetryBackoff
	return b
}

// RateLimit marks a throttled call; it is retried like Retryable.
func (b *ErrorBuilder) RateLimit() *ErrorBuilder {
	b.err.retry = RetryRateLimit
	return b
}

// UserAction marks a failure no retry can fix (bad key, missing permission).
func (b *ErrorBuilder) UserAction() *ErrorBuilder {
	b.err.retry = RetryUserAction
	return b
}

// Build returns the error. The builder may be reused; context is copied.
func (b *ErrorBuilder) Build() *ClassifiedError {
	out := b.err
	out.context = b.err.Context()
	return &out
}

func ConfigError(message string) *ErrorBuilder { return of(CategoryConfig, message) }

// ValidationError is a usage or state error reported before stage work begins.
func ValidationError(message string) *ErrorBuilder { return of(CategoryValidation, message) }

func AuthError(message string) *ErrorBuilder    { return of(CategoryAuth, message) }
func NetworkError(message string) *ErrorBuilder { return of(CategoryNetwork, message) }

// GenerationError is a generation service failure. Callers decide retryability.
func GenerationError(message string) *ErrorBuilder { return of(CategoryGeneration, message) }

// HelperError is a helper subprocess failure; these degrade rather than abort.
func HelperError(message string) *ErrorBuilder { return of(CategoryHelper, message) }

func StageError(message string) *ErrorBuilder      { return of(CategoryStage, message) }
func FileSystemError(message string) *ErrorBuilder { return of(CategoryFileSystem, message) }
func DeployError(message string) *ErrorBuilder     { return of(CategoryDeploy, message) }
func EventStoreError(message string) *ErrorBuilder { return of(CategoryEventStore, message) }
func InternalError(message string) *ErrorBuilder   { return of(CategoryInternal, message) }
