package types

import "go/token"

// Status is the outcome of one proof obligation.
type Status int

const (
	// StatusProved means the solver found the negated goal unsatisfiable.
	StatusProved Status = iota
	// StatusRefuted means the solver produced a counterexample.
	StatusRefuted
	// StatusUnsupported means the obligation uses a construct the
	// translator cannot encode.
	StatusUnsupported
	// StatusMalformed reports an annotation that could not be extracted.
	StatusMalformed
	// StatusError means no verdict could be obtained from the solver.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusProved:
		return "PROVED"
	case StatusRefuted:
		return "REFUTED"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusMalformed:
		return "MALFORMED"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Failed reports whether the status should fail a verification run.
func (s Status) Failed() bool {
	return s != StatusProved
}

// Report is the result of one proof obligation, or an extraction
// diagnostic.
type Report struct {
	Filename string         `json:"filename"`
	Label    string         `json:"label"`
	Kind     string         `json:"kind,omitempty"`
	Status   Status         `json:"status"`
	Start    token.Position `json:"start"`
	Message  string         `json:"message,omitempty"`
	Model    map[string]any `json:"model,omitempty"`
}
