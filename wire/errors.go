package wire

import "fmt"

// TransportError is returned when the underlying stream fails, including when
// it is closed before a full vector or acknowledgment has been read.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("wire: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when the peer sends something that does not fit
// the protocol, or when the local side is asked to do something it does not
// recognize. It is never retried.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "wire: protocol violation: " + e.Reason
}

func protocolErrorf(format string, args ...any) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}
