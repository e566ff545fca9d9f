package smt

import _ "embed"

// Preamble declares the value sort and the helper functions every query
// relies on. It is prepended verbatim to each theorem's query.
//
//go:embed preamble.smt2
var Preamble string

// Sort guards emitted for declarations with a known primitive type.
const (
	GuardInt    = "((_ is VInt) %s)"
	GuardBool   = "((_ is VBool) %s)"
	GuardString = "((_ is VStr) %s)"
)
