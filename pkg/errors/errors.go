// Package errors defines the structured error taxonomy used across the
// segmentation and playlist engine: every failure carries a stable code,
// a human message, structured fields and an optional cause chain instead
// of an ad-hoc string.
package errors

import "fmt"

// ErrorCode identifies the kind of failure independent of its message.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = 1000

	// BinaryError (2000-2099): BinaryCodec reader/writer failures.
	ErrCodeEndOfData   ErrorCode = 2000
	ErrCodeInvalidData ErrorCode = 2001

	// ContainerError (2100-2199): ISOBMFF box-tree / FileInfo failures.
	ErrCodeInvalidFile       ErrorCode = 2100
	ErrCodeMissingBox        ErrorCode = 2101
	ErrCodeInvalidBoxData    ErrorCode = 2102
	ErrCodeFileTooLarge      ErrorCode = 2103
	ErrCodeUnsupportedCodec  ErrorCode = 2104
	ErrCodeContainerIO       ErrorCode = 2105

	// CodecError (2200-2299): AnnexB/ADTS/PES transformation failures.
	ErrCodeInvalidAVCConfig   ErrorCode = 2200
	ErrCodeInvalidAudioConfig ErrorCode = 2201
	ErrCodePESError           ErrorCode = 2202
	ErrCodePacketError        ErrorCode = 2203

	// PlaylistError (2300-2399): M3U8 parse/render/validate failures.
	ErrCodePlaylistEmpty          ErrorCode = 2300
	ErrCodeMissingHeader          ErrorCode = 2301
	ErrCodeAmbiguousPlaylistType  ErrorCode = 2302
	ErrCodeMissingTag             ErrorCode = 2303
	ErrCodeMissingAttribute       ErrorCode = 2304
	ErrCodeInvalidAttributeValue  ErrorCode = 2305
	ErrCodeInvalidTagFormat       ErrorCode = 2306
	ErrCodeInvalidDuration        ErrorCode = 2307
	ErrCodeMissingURI             ErrorCode = 2308
	ErrCodeInvalidVersion         ErrorCode = 2309
	ErrCodeParseFailed            ErrorCode = 2310

	// LiveError (2400-2499): LiveCore actor failures.
	ErrCodeStreamAlreadyEnded   ErrorCode = 2400
	ErrCodePartialLimitExceeded ErrorCode = 2401
	ErrCodeInvalidPartialDur    ErrorCode = 2402

	// Segmenter orchestration (2500-2599).
	ErrCodeInvalidInput   ErrorCode = 2500
	ErrCodeNoVideoOrAudio ErrorCode = 2501

	// Publisher / KeyProvider (2600-2699), ambient/domain-stack collaborators.
	ErrCodePublishFailed  ErrorCode = 2600
	ErrCodeKeyDerivation  ErrorCode = 2601
)

// Error is the single structured error type returned across the engine.
// Fields is an open bag of named values (e.g. "box_type", "needed",
// "available", "line") relevant to the specific code.
type Error struct {
	Code    ErrorCode
	Message string
	Fields  map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HumanMessage renders the error with its fields for logs, separate from
// the terse Error() string used in %w chains.
func (e *Error) HumanMessage() string {
	msg := e.Message
	for k, v := range e.Fields {
		msg += fmt.Sprintf(" %s=%v", k, v)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" cause=%v", e.Cause)
	}
	return msg
}

func New(code ErrorCode, message string, fields map[string]any) *Error {
	return &Error{Code: code, Message: message, Fields: fields}
}

func Wrap(code ErrorCode, message string, cause error, fields map[string]any) *Error {
	return &Error{Code: code, Message: message, Fields: fields, Cause: cause}
}

func IsErrorCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}

func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ErrCodeUnknown
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ErrCodeUnknown
}

// Convenience constructors for the leaf conditions the engine raises.
// Codes without a constructor here are built with New or Wrap.

func NewEndOfData(needed, available int) *Error {
	return New(ErrCodeEndOfData, "unexpected end of data", map[string]any{"needed": needed, "available": available})
}

func NewInvalidData(detail string) *Error {
	return New(ErrCodeInvalidData, "invalid binary data: "+detail, nil)
}

func NewMissingBox(boxType string) *Error {
	return New(ErrCodeMissingBox, "missing required box", map[string]any{"box_type": boxType})
}

func NewInvalidBoxData(boxType, reason string) *Error {
	return New(ErrCodeInvalidBoxData, "invalid box data", map[string]any{"box_type": boxType, "reason": reason})
}

func NewUnsupportedCodec(fourCC string) *Error {
	return New(ErrCodeUnsupportedCodec, "unsupported codec", map[string]any{"codec": fourCC})
}

func NewContainerIO(detail string, cause error) *Error {
	return Wrap(ErrCodeContainerIO, "container io error: "+detail, cause, nil)
}

func NewInvalidAVCConfig(reason string) *Error {
	return New(ErrCodeInvalidAVCConfig, "invalid avcC configuration: "+reason, nil)
}

func NewInvalidAudioConfig(reason string) *Error {
	return New(ErrCodeInvalidAudioConfig, "invalid AudioSpecificConfig: "+reason, nil)
}

func NewInvalidInput(reason string) *Error {
	return New(ErrCodeInvalidInput, "invalid input: "+reason, nil)
}

func NewNoVideoOrAudio() *Error {
	return New(ErrCodeNoVideoOrAudio, "source contains no usable video or audio track", nil)
}

func NewPlaylistParseFailed(reason string, line int) *Error {
	fields := map[string]any{"reason": reason}
	if line > 0 {
		fields["line"] = line
	}
	return New(ErrCodeParseFailed, "playlist parse failed: "+reason, fields)
}

func NewInvalidDuration(line int) *Error {
	return New(ErrCodeInvalidDuration, "invalid EXTINF duration", map[string]any{"line": line})
}

func NewMissingHeader() *Error {
	return New(ErrCodeMissingHeader, "playlist does not start with #EXTM3U", nil)
}

func NewAmbiguousPlaylistType() *Error {
	return New(ErrCodeAmbiguousPlaylistType, "playlist has both master and media tags", nil)
}

func NewStreamAlreadyEnded() *Error {
	return New(ErrCodeStreamAlreadyEnded, "cannot add partial: stream already ended", nil)
}

func NewPartialLimitExceeded(limit int) *Error {
	return New(ErrCodePartialLimitExceeded, "partial limit exceeded", map[string]any{"limit": limit})
}

func NewPublishFailed(target string, cause error) *Error {
	return Wrap(ErrCodePublishFailed, "publish failed: "+target, cause, nil)
}
