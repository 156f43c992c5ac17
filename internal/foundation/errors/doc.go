// Package errors provides the classified errors used across blogbuilder.
//
// Every error carries an ErrorCategory. The category decides the CLI exit
// code, the HTTP status on the preview server, and the default severity and
// hint of new errors:
//
//	err := errors.ContentError("invalid front matter").
//		WithContext("path", relPath).
//		Build()
//
//	err = errors.WrapError(ioErr, errors.CategoryFileSystem, "write page").
//		WithContext("path", dst).
//		Build()
package errors
