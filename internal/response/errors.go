package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Assessment-specific ───────────────────────────────────────────
	ErrAssessmentNotFound  ErrCode = "ASSESSMENT_NOT_FOUND"
	ErrAssessmentNotLive   ErrCode = "ASSESSMENT_NOT_LIVE"
	ErrAssessmentCompleted ErrCode = "ASSESSMENT_COMPLETED"
	ErrRulesNotAccepted    ErrCode = "RULES_NOT_ACCEPTED"

	// ─── Attempt-specific ──────────────────────────────────────────────
	ErrAttemptNotFound   ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptSubmitted  ErrCode = "ATTEMPT_SUBMITTED"
	ErrAttemptClosed     ErrCode = "ATTEMPT_CLOSED"
	ErrInvalidQuestion   ErrCode = "INVALID_QUESTION"
	ErrInvalidOption     ErrCode = "INVALID_OPTION"
	ErrInvalidTransition ErrCode = "INVALID_TRANSITION"
	ErrIdentityMismatch  ErrCode = "IDENTITY_MISMATCH"
	ErrUnknownIntent     ErrCode = "UNKNOWN_INTENT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal           ErrCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrCode = "SERVICE_UNAVAILABLE"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid roll number or password."
	case ErrSessionActive:
		return "You are already signed in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Assessment-specific ───────────────────────────────────────────
	case ErrAssessmentNotFound:
		return "Assessment not found."
	case ErrAssessmentNotLive:
		return "This assessment is not open right now."
	case ErrAssessmentCompleted:
		return "You have already completed this assessment."
	case ErrRulesNotAccepted:
		return "Please accept the assessment rules before starting."

	// ─── Attempt-specific ──────────────────────────────────────────────
	case ErrAttemptNotFound:
		return "No attempt is running for this assessment."
	case ErrAttemptSubmitted:
		return "This attempt has already been submitted."
	case ErrAttemptClosed:
		return "This attempt was closed before submission."
	case ErrInvalidQuestion:
		return "Question does not exist."
	case ErrInvalidOption:
		return "Option does not exist."
	case ErrInvalidTransition:
		return "That action is not available right now."
	case ErrIdentityMismatch:
		return "Roll number does not match. Please try again."
	case ErrUnknownIntent:
		return "Unknown action."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	case ErrServiceUnavailable:
		return "A backing service is unavailable."
	default:
		return "An unexpected error occurred."
	}
}
