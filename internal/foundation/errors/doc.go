// Package errors provides the classified error primitives used across bookbuilder.
//
// A ClassifiedError carries a category (config, content, reference, filesystem, ...),
// a severity and free-form context. The CLI adapter maps categories to exit codes.
//
//	err := errors.FileSystemError("cannot create output root").
//		WithCause(cause).
//		WithContext("path", out).
//		Build()
package errors
