package types

import (
	"errors"
	"fmt"
)

// ErrorCode is the closed set of rejection codes surfaced to callers.
// Precondition and authorization failures are expected, user-recoverable
// outcomes; ErrorClass lets the UI distinguish them from transient
// infrastructure failures that warrant a retry offer.
type ErrorCode string

const (
	// not-found
	CodeSessionNotFound   ErrorCode = "SESSION_NOT_FOUND"
	CodeChallengeNotFound ErrorCode = "CHALLENGE_NOT_FOUND"

	// precondition-failed
	CodeSessionNotActive          ErrorCode = "SESSION_NOT_ACTIVE"
	CodeSessionNotJoinable        ErrorCode = "SESSION_NOT_JOINABLE"
	CodeSessionExpired            ErrorCode = "SESSION_EXPIRED"
	CodeSessionActive             ErrorCode = "SESSION_ACTIVE"
	CodeChallengeAlreadyCompleted ErrorCode = "CHALLENGE_ALREADY_COMPLETED"
	CodeNotYourTurn               ErrorCode = "NOT_YOUR_TURN"
	CodeNoChangesLeft             ErrorCode = "NO_CHANGES_LEFT"
	CodeBonusLimitReached         ErrorCode = "BONUS_LIMIT_REACHED"
	CodeRequestAlreadyPending     ErrorCode = "REQUEST_ALREADY_PENDING"
	CodeNoPendingRequest          ErrorCode = "NO_PENDING_REQUEST"
	CodeNoChallengesAvailable     ErrorCode = "NO_CHALLENGES_AVAILABLE"

	// authorization
	CodeNotAMember           ErrorCode = "NOT_A_MEMBER"
	CodeCreatorOnly          ErrorCode = "CREATOR_ONLY"
	CodeRequesterOnly        ErrorCode = "REQUESTER_ONLY"
	CodeCannotJoinOwn        ErrorCode = "CANNOT_JOIN_OWN_SESSION"
	CodePremiumRequired      ErrorCode = "PREMIUM_REQUIRED"
	CodeBothPremiumRequired  ErrorCode = "BOTH_PREMIUM_REQUIRED"
	CodeSelfSubmission       ErrorCode = "SELF_SUBMISSION_FORBIDDEN"

	// validation
	CodeInvalidConfig    ErrorCode = "INVALID_CONFIG"
	CodeInvalidChallenge ErrorCode = "INVALID_CHALLENGE"
	CodePromptTooShort   ErrorCode = "PROMPT_TOO_SHORT"

	// transient / infrastructure
	CodeGenerationFailed ErrorCode = "CODE_GENERATION_FAILED"
	CodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// ErrorClass groups codes by how the caller should react.
type ErrorClass string

const (
	ClassNotFound     ErrorClass = "not_found"
	ClassPrecondition ErrorClass = "precondition"
	ClassAuthorization ErrorClass = "authorization"
	ClassValidation   ErrorClass = "validation"
	ClassTransient    ErrorClass = "transient"
)

// Class returns the taxonomy class of a code.
func (c ErrorCode) Class() ErrorClass {
	switch c {
	case CodeSessionNotFound, CodeChallengeNotFound:
		return ClassNotFound
	case CodeNotAMember, CodeCreatorOnly, CodeRequesterOnly, CodeCannotJoinOwn,
		CodePremiumRequired, CodeBothPremiumRequired, CodeSelfSubmission:
		return ClassAuthorization
	case CodeInvalidConfig, CodeInvalidChallenge, CodePromptTooShort:
		return ClassValidation
	case CodeGenerationFailed, CodeStoreUnavailable:
		return ClassTransient
	default:
		return ClassPrecondition
	}
}

// GameError is the typed rejection returned by every core operation.
// Operations never panic or raise past the service boundary; they return
// one of these instead.
type GameError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *GameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GameError) Unwrap() error { return e.Err }

// NewError builds a GameError with a short human-readable message.
func NewError(code ErrorCode, message string) *GameError {
	return &GameError{Code: code, Message: message}
}

// WrapError attaches a code and message to an underlying failure,
// typically a store error.
func WrapError(code ErrorCode, message string, err error) *GameError {
	return &GameError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the error code from an error chain. Unknown errors map
// to CodeStoreUnavailable so the UI treats them as retryable.
func CodeOf(err error) ErrorCode {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return CodeStoreUnavailable
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var ge *GameError
	return errors.As(err, &ge) && ge.Code == code
}
