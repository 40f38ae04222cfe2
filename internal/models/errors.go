package models

import "errors"

// Sentinel errors shared by repositories and services. Callers match them
// with errors.Is; repositories wrap driver errors before returning.
var (
	// ErrNotFound is returned when a record does not exist in the repository.
	ErrNotFound = errors.New("not found")

	// ErrNoValidNode means no node could be resolved for a story through the
	// whole priority chain. Fatal for the caller: there is no position to
	// continue from.
	ErrNoValidNode = errors.New("no valid node found for story")

	// ErrInvalidNode means a transition target node id does not resolve to an
	// existing node. The transition performs no partial mutation.
	ErrInvalidNode = errors.New("invalid transition target node")

	// ErrStateConflict means a concurrent transition won the race for the same
	// session. The caller should re-resolve the current node and retry.
	ErrStateConflict = errors.New("concurrent session transition conflict")

	// ErrMissionNotActive is returned by terminal mission transitions when the
	// mission is not in the active state. The mission is left unchanged.
	ErrMissionNotActive = errors.New("mission is not active")

	// ErrInvalidGenerationResult means the generation collaborator returned a
	// malformed or empty response that could not be normalized.
	ErrInvalidGenerationResult = errors.New("invalid generation result")

	// ErrSessionBusy means another transition is already in flight for the
	// session (pre-lock guard, see database.RedisSessionGuard).
	ErrSessionBusy = errors.New("session has a transition in flight")
)

// ErrorCode is the stable machine-readable code surfaced to API clients so
// they can distinguish "try again" from "restart story" from "generation
// failed" without parsing error text.
type ErrorCode string

const (
	CodeRetry            ErrorCode = "retry"
	CodeSessionCorrupted ErrorCode = "session_corrupted"
	CodeGenerationFailed ErrorCode = "generation_failed"
	CodeNotFound         ErrorCode = "not_found"
	CodeInternal         ErrorCode = "internal"
)

// CodeForError maps taxonomy errors to their stable client-facing code.
func CodeForError(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrStateConflict), errors.Is(err, ErrSessionBusy):
		return CodeRetry
	case errors.Is(err, ErrNoValidNode):
		return CodeSessionCorrupted
	case errors.Is(err, ErrInvalidGenerationResult):
		return CodeGenerationFailed
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidNode):
		return CodeNotFound
	default:
		return CodeInternal
	}
}
