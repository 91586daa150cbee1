package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies operation failures.
type ErrorKind string

// Supported error kinds.
const (
	ErrorKindIOFailure            ErrorKind = "io_failure"
	ErrorKindNetworkFailure       ErrorKind = "network_failure"
	ErrorKindCheckoutFailure      ErrorKind = "checkout_failure"
	ErrorKindPushRejected         ErrorKind = "push_rejected"
	ErrorKindConfigurationFailure ErrorKind = "configuration_failure"
	ErrorKindMissingIdentity      ErrorKind = "missing_identity"
)

const (
	ioFailureMessageConstant            = "repository could not be read or written"
	networkFailureMessageConstant       = "remote could not be reached"
	checkoutFailureMessageConstant      = "branch could not be checked out"
	pushRejectedMessageConstant         = "remote rejected ref update"
	configurationFailureMessageConstant = "submodule configuration could not be updated"
	missingIdentityMessageConstant      = "no committer identity available"

	operationErrorPrefixTemplateConstant  = "%s failed (%s)"
	operationErrorContextTemplateConstant = " [%s]"
	operationErrorCauseTemplateConstant   = ": %v"
	contextFieldTemplateConstant          = "%s=%s"
	contextFieldSeparatorConstant         = ", "
	contextFieldBranchConstant            = "branch"
	contextFieldSubmoduleConstant         = "submodule"
	contextFieldReferenceConstant         = "ref"
)

var (
	// ErrIOFailure marks unreadable or unwritable repositories.
	ErrIOFailure = errors.New(ioFailureMessageConstant)
	// ErrNetworkFailure marks transport failures such as unreachable hosts or rejected authentication.
	ErrNetworkFailure = errors.New(networkFailureMessageConstant)
	// ErrCheckoutFailure marks branches that exist neither locally nor on the remote.
	ErrCheckoutFailure = errors.New(checkoutFailureMessageConstant)
	// ErrPushRejected marks remote ref updates reported with a disallowed status.
	ErrPushRejected = errors.New(pushRejectedMessageConstant)
	// ErrConfigurationFailure marks failures to load or save submodule configuration.
	ErrConfigurationFailure = errors.New(configurationFailureMessageConstant)
	// ErrMissingIdentity marks commits that have no author identity available.
	ErrMissingIdentity = errors.New(missingIdentityMessageConstant)
)

// OperationError describes a failed operation along with the branch, submodule, and ref involved.
type OperationError struct {
	Kind      ErrorKind
	Operation string
	Branch    string
	Submodule string
	Reference string
	Cause     error
}

// NewOperationError constructs an OperationError of the provided kind.
func NewOperationError(kind ErrorKind, operation string, cause error) *OperationError {
	return &OperationError{Kind: kind, Operation: operation, Cause: cause}
}

// WithBranch annotates the error with the parent branch being processed.
func (operationError *OperationError) WithBranch(branch string) *OperationError {
	operationError.Branch = branch
	return operationError
}

// WithSubmodule annotates the error with the submodule being processed.
func (operationError *OperationError) WithSubmodule(submodule string) *OperationError {
	operationError.Submodule = submodule
	return operationError
}

// WithReference annotates the error with the ref involved.
func (operationError *OperationError) WithReference(reference string) *OperationError {
	operationError.Reference = reference
	return operationError
}

// Error renders the operation, kind, context, and cause.
func (operationError *OperationError) Error() string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(operationErrorPrefixTemplateConstant, operationError.Operation, operationError.Kind))

	contextFields := make([]string, 0, 3)
	if len(operationError.Branch) > 0 {
		contextFields = append(contextFields, fmt.Sprintf(contextFieldTemplateConstant, contextFieldBranchConstant, operationError.Branch))
	}
	if len(operationError.Submodule) > 0 {
		contextFields = append(contextFields, fmt.Sprintf(contextFieldTemplateConstant, contextFieldSubmoduleConstant, operationError.Submodule))
	}
	if len(operationError.Reference) > 0 {
		contextFields = append(contextFields, fmt.Sprintf(contextFieldTemplateConstant, contextFieldReferenceConstant, operationError.Reference))
	}
	if len(contextFields) > 0 {
		builder.WriteString(fmt.Sprintf(operationErrorContextTemplateConstant, strings.Join(contextFields, contextFieldSeparatorConstant)))
	}

	if operationError.Cause != nil {
		builder.WriteString(fmt.Sprintf(operationErrorCauseTemplateConstant, operationError.Cause))
	}
	return builder.String()
}

// Unwrap exposes the kind sentinel and the underlying cause to errors.Is and errors.As.
func (operationError *OperationError) Unwrap() []error {
	unwrapped := make([]error, 0, 2)
	if sentinel := KindSentinel(operationError.Kind); sentinel != nil {
		unwrapped = append(unwrapped, sentinel)
	}
	if operationError.Cause != nil {
		unwrapped = append(unwrapped, operationError.Cause)
	}
	return unwrapped
}

// KindSentinel returns the sentinel error matching an error kind.
func KindSentinel(kind ErrorKind) error {
	switch kind {
	case ErrorKindIOFailure:
		return ErrIOFailure
	case ErrorKindNetworkFailure:
		return ErrNetworkFailure
	case ErrorKindCheckoutFailure:
		return ErrCheckoutFailure
	case ErrorKindPushRejected:
		return ErrPushRejected
	case ErrorKindConfigurationFailure:
		return ErrConfigurationFailure
	case ErrorKindMissingIdentity:
		return ErrMissingIdentity
	default:
		return nil
	}
}

// KindOf reports the kind of the first OperationError in the chain.
func KindOf(err error) (ErrorKind, bool) {
	var operationError *OperationError
	if errors.As(err, &operationError) {
		return operationError.Kind, true
	}
	return "", false
}

// Annotate attaches branch and submodule context to an OperationError without overriding existing values.
// Errors of other types are wrapped as IOFailure for the named operation.
func Annotate(err error, operation string, branch string, submodule string) error {
	if err == nil {
		return nil
	}
	var operationError *OperationError
	if !errors.As(err, &operationError) {
		return NewOperationError(ErrorKindIOFailure, operation, err).WithBranch(branch).WithSubmodule(submodule)
	}
	if len(operationError.Branch) == 0 {
		operationError.Branch = branch
	}
	if len(operationError.Submodule) == 0 {
		operationError.Submodule = submodule
	}
	return err
}
