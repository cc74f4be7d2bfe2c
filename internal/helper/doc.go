// Package helper runs the Node.js collaborator programs that extract reference
// sites and build per-section context. Every invocation is a blocking process
// with its own timeout; failures surface as ErrUnavailable so callers can
// degrade to an empty contribution.
package helper
