package replsup

import (
	"fmt"
	"strconv"
)

// ResultTag identifies which of the evaluation outcomes a worker call
// produced. Exactly one tag is produced per call.
type ResultTag int

const (
	// ResultNone means the evaluation completed without producing a value
	ResultNone ResultTag = iota
	// ResultObject is a value rendered through its natural textual form
	ResultObject
	// ResultString is a string value
	ResultString
	// ResultChar is a single character value
	ResultChar
	// ResultNumber is a numeric value
	ResultNumber
	// ResultBoolean is a boolean value
	ResultBoolean
	// ResultException means the evaluated code raised an exception
	ResultException
	// ResultFault means the worker reported an unrecoverable internal
	// fault; receiving it is a programmer error
	ResultFault
	// ResultBusy means a call was attempted while the prior call on the
	// same handle had not completed; receiving it is a programmer error
	ResultBusy
)

// ResultStyle tags which rendering rule produced a displayed result
type ResultStyle string

const (
	// StyleObject marks a value rendered through its natural textual form
	StyleObject ResultStyle = "object"
	// StyleString marks a string rendered wrapped in double quotes
	StyleString ResultStyle = "string"
	// StyleChar marks a character rendered wrapped in single quotes
	StyleChar ResultStyle = "character"
	// StyleNumber marks a numeric value
	StyleNumber ResultStyle = "number"
)

// EvalResult is the outcome of one evaluation call on the worker. Value
// carries the worker's textual rendering of the result, or the message
// for ResultException; Cause carries the fault for ResultFault.
type EvalResult struct {
	Tag   ResultTag
	Value string
	Cause error
}

// NoValueResult reports an evaluation that produced no value
func NoValueResult() EvalResult { return EvalResult{Tag: ResultNone} }

// ObjectResult reports a value already rendered to its textual form
func ObjectResult(text string) EvalResult { return EvalResult{Tag: ResultObject, Value: text} }

// StringResult reports a string value
func StringResult(s string) EvalResult { return EvalResult{Tag: ResultString, Value: s} }

// CharResult reports a character value
func CharResult(c rune) EvalResult { return EvalResult{Tag: ResultChar, Value: string(c)} }

// NumberResult reports a numeric value in its textual form
func NumberResult(text string) EvalResult { return EvalResult{Tag: ResultNumber, Value: text} }

// BooleanResult reports a boolean value
func BooleanResult(b bool) EvalResult {
	return EvalResult{Tag: ResultBoolean, Value: strconv.FormatBool(b)}
}

// ExceptionResult reports that the evaluated code raised an exception
func ExceptionResult(message string) EvalResult {
	return EvalResult{Tag: ResultException, Value: message}
}

// FaultResult reports an unrecoverable worker-internal fault
func FaultResult(cause error) EvalResult { return EvalResult{Tag: ResultFault, Cause: cause} }

// BusyResult reports that the worker was still serving a prior call
func BusyResult() EvalResult { return EvalResult{Tag: ResultBusy} }

// dispatchResult maps an evaluation outcome to exactly one listener
// notification. ResultBusy and ResultFault indicate the worker or its
// caller violated the one-call-at-a-time contract; both notify
// VoidReturned as a safety default and then abort the calling thread
// with a FatalError.
func (s *Supervisor) dispatchResult(r EvalResult) {
	l := s.interaction()
	switch r.Tag {
	case ResultNone:
		l.VoidReturned()
	case ResultObject:
		l.ResultReturned(r.Value, StyleObject)
	case ResultString:
		l.ResultReturned(`"`+r.Value+`"`, StyleString)
	case ResultChar:
		l.ResultReturned("'"+r.Value+"'", StyleChar)
	case ResultNumber:
		l.ResultReturned(r.Value, StyleNumber)
	case ResultBoolean:
		// Booleans render naturally; no dedicated style exists for them.
		l.ResultReturned(r.Value, StyleObject)
	case ResultException:
		l.ExceptionThrown(r.Value)
	case ResultFault:
		l.VoidReturned()
		fatalf(r.Cause, "worker reported an internal fault")
	case ResultBusy:
		l.VoidReturned()
		fatalf(ErrWorkerBusy, "evaluation attempted while worker was busy")
	default:
		fatalf(nil, "unknown evaluation result tag %d", r.Tag)
	}
}

// String returns a compact description of the result, for logs
func (r EvalResult) String() string {
	switch r.Tag {
	case ResultNone:
		return "no-value"
	case ResultException:
		return "exception: " + r.Value
	case ResultFault:
		return fmt.Sprintf("fault: %v", r.Cause)
	case ResultBusy:
		return "busy"
	default:
		return r.Value
	}
}
