package seqerror

import (
	"errors"
	"fmt"
)

const (
	SEQ_UNEXPECTED         = "SEQUN"
	SEQ_PARSE_ERROR        = "SEQPA"
	SEQ_INVALID_PARAMETERS = "SEQIP"
	SEQ_DUPLICATE_NAME     = "SEQDN"
	SEQ_NOT_FOUND          = "SEQNF"
	SEQ_EXHAUSTED          = "SEQEX"
	SEQ_CONTENTION         = "SEQCT"
	SEQ_UNKNOWN_TABLE      = "SEQUT"
	SEQ_CORRUPT_ROW        = "SEQCR"
	SEQ_PROTOCOL_ERROR     = "SEQPR"
)

var existingErrorCodeMap = map[string]string{
	SEQ_UNEXPECTED:         "Unexpected error",
	SEQ_PARSE_ERROR:        "ParseError",
	SEQ_INVALID_PARAMETERS: "InvalidSequenceParameters",
	SEQ_DUPLICATE_NAME:     "DuplicateSequenceName",
	SEQ_NOT_FOUND:          "SequenceNotFound",
	SEQ_EXHAUSTED:          "SequenceExhausted",
	SEQ_CONTENTION:         "SequenceContention",
	SEQ_UNKNOWN_TABLE:      "UnknownCatalogTable",
	SEQ_CORRUPT_ROW:        "CorruptCatalogRow",
	SEQ_PROTOCOL_ERROR:     "ProtocolError",
}

func GetMessageByCode(errorCode string) string {
	rep, ok := existingErrorCodeMap[errorCode]
	if ok {
		return rep
	}
	return "Unexpected error"
}

var _ error = &SeqError{}

type SeqError struct {
	Err error

	ErrorCode string
}

func New(errorCode string, errorMsg string) *SeqError {
	return &SeqError{
		Err:       errors.New(errorMsg),
		ErrorCode: errorCode,
	}
}

func Newf(errorCode string, format string, a ...any) *SeqError {
	return &SeqError{
		Err:       fmt.Errorf(format, a...),
		ErrorCode: errorCode,
	}
}

func (er *SeqError) Error() string {
	return fmt.Sprintf("%s: %s", GetMessageByCode(er.ErrorCode), er.Err)
}

func (er *SeqError) Unwrap() error {
	return er.Err
}

// Is reports whether target is a SeqError carrying the same code, so
// errors.Is(err, seqerror.New(seqerror.SEQ_EXHAUSTED, "")) works on wrapped errors.
func (er *SeqError) Is(target error) bool {
	var t *SeqError
	if !errors.As(target, &t) {
		return false
	}
	return t.ErrorCode == er.ErrorCode
}

// HasCode reports whether any SeqError in err's chain has the given code.
func HasCode(err error, code string) bool {
	var se *SeqError
	if !errors.As(err, &se) {
		return false
	}
	return se.ErrorCode == code
}

// Code returns the code of the first SeqError in err's chain,
// SEQ_UNEXPECTED for foreign errors and "" for nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var se *SeqError
	if errors.As(err, &se) {
		return se.ErrorCode
	}
	return SEQ_UNEXPECTED
}

// IsTransient tells whether the failed operation may succeed when retried as is.
func IsTransient(err error) bool {
	return HasCode(err, SEQ_CONTENTION)
}
