package orchestrator

import "github.com/craigdanielk/web-builder/internal/foundation/errors"

// Usage and state errors. They are reported before any stage work begins,
// except ErrDeployRefused which is raised by the deploy gate.
var (
	ErrStageOrder      = errors.ValidationError("illegal resume: checkpoint has not reached the required stage").Build()
	ErrProjectExists   = errors.ValidationError("project already exists").Build()
	ErrMissingArtifact = errors.ValidationError("required artifact missing").Build()
	ErrInvalidOptions  = errors.ValidationError("invalid run options").Build()
	ErrDeployRefused   = errors.StageError("deploy refused: pre-flight validation found errors").Build()
)

func usage(sentinel *errors.ClassifiedError) *errors.ErrorBuilder {
	return errors.NewError(sentinel.Category(), sentinel.Message())
}
