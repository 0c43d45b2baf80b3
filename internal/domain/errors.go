package domain

import "errors"

var (
	// ErrAssessmentNotFound indicates the assessment definition could not be loaded.
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrQuestionNotFound indicates a question ID is not part of the assessment.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates the selected option is not offered by the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrSessionNotFound is returned when no live session exists for an assessment.
	ErrSessionNotFound = errors.New("assessment session not found")
	// ErrIndexOutOfRange is returned when navigating outside the question list.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrInvalidTransition is returned when an operation is not allowed in the current status.
	ErrInvalidTransition = errors.New("operation not allowed in current session status")
	// ErrCorruptSnapshot indicates a persisted snapshot could not be decoded.
	ErrCorruptSnapshot = errors.New("corrupt session snapshot")
)

// IsRejection reports whether err is a local validation rejection that left the
// session unchanged.
func IsRejection(err error) bool {
	return errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrOptionNotFound) ||
		errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrInvalidTransition)
}
