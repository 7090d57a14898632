package vcdiff

import "fmt"

// Truncated reports that the input ended before a value could be fully
// parsed. Streaming callers retry once more bytes are available;
// [Decoder.FinishDecoding] turns a pending Truncated condition into a
// terminal error.
type Truncated struct {
	// Where names the field or section that was being parsed.
	Where string
}

func (e *Truncated) Error() string {
	return fmt.Sprintf("vcdiff: truncated input while reading %s", e.Where)
}

// FormatError reports a malformed header, a malformed instruction stream,
// or any other violation of the VCDIFF wire format that does not stem from
// a policy limit.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string { return "vcdiff: " + e.Msg }

func formatErrorf(format string, a ...interface{}) error {
	return &FormatError{Msg: fmt.Sprintf(format, a...)}
}

// PolicyError reports a configured limit being exceeded: VCD_TARGET used
// while disallowed, a section or window exceeding its configured cap, or
// an unsupported optional feature such as the secondary compressor bit.
type PolicyError struct {
	Msg string
}

func (e *PolicyError) Error() string { return "vcdiff: " + e.Msg }

func policyErrorf(format string, a ...interface{}) error {
	return &PolicyError{Msg: fmt.Sprintf(format, a...)}
}

// ChecksumError reports that the Adler32 checksum recorded in a delta
// window did not match the checksum of the target bytes produced from it.
type ChecksumError struct {
	Want, Got uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("vcdiff: checksum mismatch: want %#08x, got %#08x", e.Want, e.Got)
}

// UsageError reports that the caller violated the encoder's or decoder's
// required call sequence, e.g. calling Copy before Init.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return "vcdiff: " + e.Msg }

func usageErrorf(format string, a ...interface{}) error {
	return &UsageError{Msg: fmt.Sprintf(format, a...)}
}

// InternalError reports a violated invariant inside the codec itself,
// such as the computed delta-encoding length disagreeing with the number
// of bytes actually written, or a code table with no opcode for a
// required (instruction, mode, size=0) triple.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "vcdiff: internal error: " + e.Msg }

func internalErrorf(format string, a ...interface{}) error {
	return &InternalError{Msg: fmt.Sprintf(format, a...)}
}
