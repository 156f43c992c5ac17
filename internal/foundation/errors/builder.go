package errors

// ErrorBuilder assembles a ClassifiedError. Severity and hint default to the
// category's policy.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts a builder for a new error.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	p := policyFor(category)
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: p.severity,
		hint:     p.hint,
		message:  message,
	}}
}

// WrapError starts a builder for an error caused by err.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.err.cause = err
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.context = b.err.context.with(key, value)
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder   { b.err.severity = SeverityFatal; return b }
func (b *ErrorBuilder) Warning() *ErrorBuilder { b.err.severity = SeverityWarning; return b }

// Retryable marks the error as transient.
func (b *ErrorBuilder) Retryable() *ErrorBuilder { b.err.hint = HintRetry; return b }

// UserAction marks the error as resolvable by fixing the input.
func (b *ErrorBuilder) UserAction() *ErrorBuilder { b.err.hint = HintFixInput; return b }

// Build returns the error. The builder may not be reused.
func (b *ErrorBuilder) Build() *ClassifiedError {
	err := b.err
	if err.context == nil {
		err.context = ErrorContext{}
	}
	return &err
}

func ConfigError(message string) *ErrorBuilder     { return NewError(CategoryConfig, message) }
func ValidationError(message string) *ErrorBuilder { return NewError(CategoryValidation, message) }
func NotFoundError(message string) *ErrorBuilder   { return NewError(CategoryNotFound, message) }
func ContentError(message string) *ErrorBuilder    { return NewError(CategoryContent, message) }
func TemplateError(message string) *ErrorBuilder   { return NewError(CategoryTemplate, message) }
func BuildError(message string) *ErrorBuilder      { return NewError(CategoryBuild, message) }
func FileSystemError(message string) *ErrorBuilder { return NewError(CategoryFileSystem, message) }
func EventStoreError(message string) *ErrorBuilder { return NewError(CategoryEventStore, message) }
func NetworkError(message string) *ErrorBuilder    { return NewError(CategoryNetwork, message) }
func GitError(message string) *ErrorBuilder        { return NewError(CategoryGit, message) }
func RuntimeError(message string) *ErrorBuilder    { return NewError(CategoryRuntime, message) }
func InternalError(message string) *ErrorBuilder   { return NewError(CategoryInternal, message) }
