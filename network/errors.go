package network

import (
	"errors"
	"fmt"
)

// Reason is the stable, machine-readable cause of a failed lookup.
type Reason string

const (
	ReasonNetworkNotInitialized Reason = "NETWORK_NOT_INITIALIZED"
	ReasonTransportSend         Reason = "TRANSPORT_SEND"
	ReasonTimeout               Reason = "TIMEOUT"
	ReasonInvalidReply          Reason = "INVALID_REPLY"
	ReasonCIDMismatch           Reason = "CID_MISMATCH"
)

// Failure is the settled error of a lookup. It is stored in Results, never
// returned across the reducer boundary.
type Failure struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

var (
	ErrNetworkNotInitialized = &Failure{Reason: ReasonNetworkNotInitialized, Message: "network not initialized"}
	ErrTimeout               = &Failure{Reason: ReasonTimeout, Message: "lookup timed out"}
	ErrTransportSend         = &Failure{Reason: ReasonTransportSend, Message: "send failed"}
	ErrInvalidReply          = &Failure{Reason: ReasonInvalidReply, Message: "invalid reply content"}
	ErrCIDMismatch           = &Failure{Reason: ReasonCIDMismatch, Message: "reply content does not match address"}
)

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", f.Reason, f.Message)
}

// Is matches any Failure with the same Reason, so callers can test a stored
// failure with errors.Is(err, network.ErrTimeout).
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok || f == nil || t == nil {
		return false
	}
	return f.Reason == t.Reason
}

func NewFailure(reason Reason, message string) *Failure {
	return &Failure{Reason: reason, Message: message}
}

// asFailure copies a Failure and files any other error under reason. The
// copy keeps stored outcomes from aliasing the package sentinels.
func asFailure(err error, reason Reason) *Failure {
	var f *Failure
	if errors.As(err, &f) && f != nil {
		return NewFailure(f.Reason, f.Message)
	}
	return NewFailure(reason, err.Error())
}
