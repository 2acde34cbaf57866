// Package errs collects the sentinel errors returned by every package in
// this module. Callers compare against these with errors.Is. The packages
// of this module return them unwrapped; no column/row/offset context is
// attached.
package errs

import "errors"

// Number parsing/formatting.
var (
	// ErrEmpty is returned when a number has no digits to consume.
	ErrEmpty = errors.New("numfmt: empty number")
	// ErrUnexpectedChar is returned when a non-digit appears where only digits are accepted.
	ErrUnexpectedChar = errors.New("numfmt: unexpected character")
	// ErrOverflow is returned when a parsed magnitude exceeds the backend's representable range.
	ErrOverflow = errors.New("numfmt: overflow")
	// ErrUnderflow is returned when a parsed magnitude underflows the backend's representable range.
	ErrUnderflow = errors.New("numfmt: underflow")
	// ErrBackendError is returned on internal precision overflow in the precise backend.
	ErrBackendError = errors.New("numfmt: backend error")
	// ErrNonFiniteInput is returned when Format is given NaN or +-Inf.
	ErrNonFiniteInput = errors.New("numfmt: non-finite input")
	// ErrSystemMissing is returned by Parse when the input is the system-missing
	// token (a leading '*'); it carries no double value.
	ErrSystemMissing = errors.New("numfmt: system-missing value")
)

// NumberSystem construction.
var (
	// ErrAlphabetInvalid is returned when a digit alphabet has duplicates or is shorter than its base.
	ErrAlphabetInvalid = errors.New("numsys: invalid alphabet")
)

// POR format (records, charset, byte layer).
var (
	// ErrInvalidHeader is returned when a file's fixed signature does not match.
	ErrInvalidHeader = errors.New("por: invalid header")
	// ErrRowTooLong is returned when a physical POR line exceeds the configured row width.
	ErrRowTooLong = errors.New("por: row too long")
	// ErrTagUnknown is returned when a POR metadata tag byte is not recognized.
	ErrTagUnknown = errors.New("por: unknown tag")
	// ErrCharsetUnmapped is a warning-class condition: a byte has no inverse charset mapping.
	ErrCharsetUnmapped = errors.New("por: unmapped charset byte")
)

// SAV format (records, case stream).
var (
	// ErrInvalidSignature is returned when a SAV file's $FL2 signature does not match.
	ErrInvalidSignature = errors.New("sav: invalid signature")
	// ErrRejected is returned by the SAV decompressor/parser on a structurally invalid matrix stream.
	ErrRejected = errors.New("sav: rejected")
	// ErrMixedValueLabelTypes is returned when a value-label map's variables are not all numeric or all string.
	ErrMixedValueLabelTypes = errors.New("sav: mixed value-label variable types")
	// ErrBufferSize is returned when a string-accumulation buffer is resized to anything but a positive multiple of 8.
	ErrBufferSize = errors.New("sav: buffer size must be a positive multiple of 8")
)

// Matrix driver.
var (
	// ErrInvalidCell is returned by the driver when a parser error occurs while decoding a cell.
	ErrInvalidCell = errors.New("matrix: invalid cell")
	// ErrColumnsExhausted is returned when more cells are produced than the column width vector allows.
	ErrColumnsExhausted = errors.New("matrix: column vector exhausted")
)

// Variable dictionary (8-byte SAV name truncation).
var (
	// ErrNameCollision is returned when two distinct variable names truncate to the same 8-byte slot.
	ErrNameCollision = errors.New("sav: variable name collision after truncation")
)
