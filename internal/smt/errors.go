package smt

import "fmt"

// ProtocolError reports a solver response that does not start with a
// satisfiability marker. It is a failure of the solver (or of the preamble),
// never a property of the verified program.
type ProtocolError struct {
	Response string
}

func (e *ProtocolError) Error() string {
	resp := e.Response
	if len(resp) > 120 {
		resp = resp[:120] + "..."
	}
	return fmt.Sprintf("solver failed to solve problem: %q", resp)
}

// DecodeError reports a response whose structure cannot be decoded, or a
// model requested from a response that carries none.
type DecodeError struct {
	Msg    string
	Offset int
}

func (e *DecodeError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("decode error at offset %d: %s", e.Offset, e.Msg)
	}
	return "decode error: " + e.Msg
}
