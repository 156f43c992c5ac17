package errors

import "net/http"

// ErrorCategory is the broad class of an error. It decides the exit code of
// the CLI, the HTTP status of the preview server and the default severity.
type ErrorCategory string

const (
	// Invalid user input: flags, config.toml, scaffold targets.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// Site source problems the author has to fix.
	CategoryContent  ErrorCategory = "content"
	CategoryTemplate ErrorCategory = "template"

	// Build and output.
	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryEventStore ErrorCategory = "eventstore"

	// External systems.
	CategoryNetwork ErrorCategory = "network"
	CategoryGit     ErrorCategory = "git"

	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity is the impact of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
)

// Hint tells the caller what may resolve an error.
type Hint string

const (
	HintNone     Hint = ""
	HintRetry    Hint = "retry"
	HintFixInput Hint = "fix_input"
)

// policy is the presentation of one category.
type policy struct {
	exitCode   int
	httpStatus int
	severity   ErrorSeverity
	hint       Hint
}

const (
	exitGeneral = 1
	exitUsage   = 2
)

var policies = map[ErrorCategory]policy{
	CategoryValidation: {exitUsage, http.StatusBadRequest, SeverityFatal, HintNone},
	CategoryNotFound:   {4, http.StatusNotFound, SeverityError, HintFixInput},
	CategoryConfig:     {7, http.StatusBadRequest, SeverityFatal, HintNone},
	CategoryNetwork:    {8, http.StatusBadGateway, SeverityError, HintRetry},
	CategoryGit:        {8, http.StatusBadGateway, SeverityWarning, HintNone},
	CategoryContent:    {9, http.StatusUnprocessableEntity, SeverityError, HintFixInput},
	CategoryTemplate:   {9, http.StatusUnprocessableEntity, SeverityError, HintFixInput},
	CategoryInternal:   {10, http.StatusInternalServerError, SeverityFatal, HintNone},
	CategoryBuild:      {11, http.StatusUnprocessableEntity, SeverityFatal, HintNone},
	CategoryFileSystem: {11, http.StatusInternalServerError, SeverityError, HintRetry},
	CategoryEventStore: {11, http.StatusInternalServerError, SeverityError, HintNone},
	CategoryRuntime:    {12, http.StatusServiceUnavailable, SeverityFatal, HintNone},
}

func policyFor(c ErrorCategory) policy {
	if p, ok := policies[c]; ok {
		return p
	}
	return policy{exitGeneral, http.StatusInternalServerError, SeverityError, HintNone}
}

// ErrorContext carries structured key/value details of an error.
type ErrorContext map[string]any

// with returns a copy of c with key set.
func (c ErrorContext) with(key string, value any) ErrorContext {
	out := make(ErrorContext, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	out[key] = value
	return out
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	value, ok := c[key]
	return value, ok
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}
