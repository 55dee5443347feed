package eightball

import (
	"errors"
	"fmt"
)

// ATT status codes surfaced by transports. The 0x01-0x11 range matches the
// ATT error codes from the Bluetooth core specification; 0x80 and up is the
// application-defined range.
const (
	ATTStatusSuccess          = 0x00
	ATTErrInvalidHandle       = 0x01
	ATTErrReadNotPermitted    = 0x02
	ATTErrWriteNotPermitted   = 0x03
	ATTErrInvalidPDU          = 0x04
	ATTErrRequestNotSupported = 0x06
	ATTErrUnlikelyError       = 0x0E

	// ATTErrQuestionPlease is the application error a Peripheral returns
	// when a question write carries no usable text.
	ATTErrQuestionPlease = 0x80
)

// attErrMax is the top of the ATT error range the core specification defines.
const attErrMax = 0x11

// ATTError is the transport-level representation of a rejected request.
type ATTError struct {
	Code int
}

func (e *ATTError) Error() string {
	return fmt.Sprintf("att error 0x%02x", e.Code)
}

// Rejection classifies why a send failed.
type Rejection int

const (
	// DeviceOffline: the peer disconnected, its services were invalidated,
	// or it never answered within the timeout window.
	DeviceOffline Rejection = iota
	// QuestionPlease: the peer rejected the write because no question text
	// was supplied.
	QuestionPlease
	// PeripheralError: the peer rejected the write with a recognized ATT
	// error code.
	PeripheralError
	// Unknown: the write failed with an unrecognized code.
	Unknown
)

func (r Rejection) String() string {
	switch r {
	case DeviceOffline:
		return "deviceOffline"
	case QuestionPlease:
		return "questionPlease"
	case PeripheralError:
		return "peripheralError"
	default:
		return "unknown"
	}
}

// SendError is a protocol-level send failure delivered through
// Observer.ErrorOccurred. Code carries the underlying ATT/transport code for
// PeripheralError and Unknown rejections, when one exists.
type SendError struct {
	Reason Rejection
	Code   *int
}

func (e *SendError) Error() string {
	if e.Code != nil {
		return fmt.Sprintf("send failed: %s (code 0x%02x)", e.Reason, *e.Code)
	}
	return fmt.Sprintf("send failed: %s", e.Reason)
}

// TransportError wraps a failure reported by the underlying BLE stack. Raw
// transport errors never cross the observer surface without this wrapper.
type TransportError struct {
	Reason error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Reason)
}

func (e *TransportError) Unwrap() error {
	return e.Reason
}

// Precondition failures recorded in a role's last-error slot. Nothing is
// thrown across the public API; these are observable via LastError only.
var (
	ErrNoSession         = errors.New("no session for peer")
	ErrSessionNotReady   = errors.New("session not fully discovered")
	ErrQuestionInFlight  = errors.New("a question is already in flight")
	ErrNoPendingQuestion = errors.New("no question pending for central")
	ErrNotifyFailed      = errors.New("answer notification could not be queued")
)

func errDeviceOffline() *SendError {
	return &SendError{Reason: DeviceOffline}
}

// sendErrorFromWrite translates a write-acknowledgment failure into the
// protocol-level error value dispatched to observers.
func sendErrorFromWrite(err error) *SendError {
	var att *ATTError
	if errors.As(err, &att) {
		code := att.Code
		switch {
		case code == ATTErrQuestionPlease:
			return &SendError{Reason: QuestionPlease}
		case code >= ATTErrInvalidHandle && code <= attErrMax:
			return &SendError{Reason: PeripheralError, Code: &code}
		default:
			return &SendError{Reason: Unknown, Code: &code}
		}
	}
	return &SendError{Reason: Unknown}
}
