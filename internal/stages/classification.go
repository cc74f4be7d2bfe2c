package stages

import (
	"errors"

	ferrors "github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/retry"
)

// StageOutcome is the normalized result of a single stage execution.
type StageOutcome struct {
	Stage     Name
	Error     *Error
	Result    Result
	IssueCode IssueCode
	Severity  IssueSeverity
	Transient bool
	Abort     bool
}

func resultFromKind(k ErrorKind) Result {
	switch k {
	case ErrorWarning:
		return ResultWarning
	case ErrorCanceled:
		return ResultCanceled
	default:
		return ResultFatal
	}
}

func severityFromKind(k ErrorKind) IssueSeverity {
	if k == ErrorWarning {
		return SeverityWarning
	}
	return SeverityError
}

// ClassifyStageResult converts a raw error from a stage into a StageOutcome.
func ClassifyStageResult(stage Name, err error) StageOutcome {
	if err == nil {
		return StageOutcome{Stage: stage, Result: ResultSuccess}
	}

	se, ok := AsError(err)
	if !ok {
		se = NewFatalError(stage, err)
	}
	if se.Kind == ErrorCanceled {
		return StageOutcome{
			Stage:     stage,
			Error:     se,
			Result:    ResultCanceled,
			IssueCode: IssueCanceled,
			Severity:  SeverityError,
			Abort:     true,
		}
	}
	return StageOutcome{
		Stage:     stage,
		Error:     se,
		Result:    resultFromKind(se.Kind),
		IssueCode: classifyIssueCode(se),
		Severity:  severityFromKind(se.Kind),
		Transient: se.Transient(),
		Abort:     se.Kind == ErrorFatal,
	}
}

func classifyIssueCode(se *Error) IssueCode {
	if errors.Is(se.Err, retry.ErrRetriesExhausted) {
		return IssueRetriesExhausted
	}
	switch ferrors.GetCategory(se.Err) {
	case ferrors.CategoryAuth:
		return IssueAuthFailure
	case ferrors.CategoryGeneration, ferrors.CategoryNetwork:
		return IssueGenerationFailure
	case ferrors.CategoryHelper:
		return IssueHelperFailure
	case ferrors.CategoryDeploy:
		return IssueDeployFailure
	}
	if se.Stage == Review || se.Stage == Deploy {
		if ferrors.HasCategory(se.Err, ferrors.CategoryValidation) {
			return IssueValidationFailed
		}
	}
	return IssueGenericStageError
}
