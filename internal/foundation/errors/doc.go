// Package errors provides the classified error primitives used across web-builder.
//
// A ClassifiedError carries a category (config, validation, generation, stage, ...),
// a severity and a retry strategy. The CLI adapter turns the category into a
// process exit code, and the retrying call client reads the retry strategy to
// decide whether a failed generation call is worth another attempt.
//
// Example usage:
//
//	err := errors.GenerationError("service overloaded").
//		Retryable().
//		WithContext("status", 529).
//		Build()
package errors
