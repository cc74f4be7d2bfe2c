package eventstore

import (
	"github.com/craigdanielk/web-builder/internal/foundation/errors"
)

// Sentinels for event store failures. Wrapped errors keep the sentinel's
// category and message so errors.Is matches them.
var (
	ErrDatabaseOpenFailed = errors.EventStoreError("could not open event store database").Build()

	ErrInitializeSchemaFailed = errors.EventStoreError("failed to initialize event store schema").Build()

	ErrEventAppendFailed = errors.EventStoreError("failed to append event to store").Build()

	ErrEventQueryFailed = errors.EventStoreError("failed to query events from store").Build()

	// ErrMarshalPayloadFailed indicates JSON marshaling of an event payload failed.
	ErrMarshalPayloadFailed = errors.EventStoreError("failed to marshal event payload").Build()

	ErrProjectionRebuildFailed = errors.EventStoreError("failed to rebuild projection").Build()
)

func wrap(err error, sentinel *errors.ClassifiedError) *errors.ErrorBuilder {
	return errors.WrapError(err, errors.CategoryEventStore, sentinel.Message())
}
