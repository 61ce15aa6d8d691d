// Package journal implements the optional append-only attempt journal.
//
// Each attempt is one length-prefixed msgpack frame: a 4-byte big-endian
// payload length followed by the encoded types.AttemptRecord. The format
// is append-friendly (a crashed run leaves at most one truncated frame at
// the tail) and readable without retry itself.
package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/glennpratt/retry/types"
)

// Record size constants.
const (
	// MaxRecordSize is the maximum frame size, including length prefix.
	// Attempt records are small; anything near this limit is corruption.
	MaxRecordSize = 1 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxRecordSize - prefix).
	MaxPayloadSize = MaxRecordSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// RecordErrorKind classifies journal record errors.
type RecordErrorKind int

const (
	// RecordErrorPartial indicates a truncated or incomplete frame.
	RecordErrorPartial RecordErrorKind = iota
	// RecordErrorTooLarge indicates a frame exceeding MaxRecordSize.
	RecordErrorTooLarge
	// RecordErrorDecode indicates a msgpack decoding error.
	RecordErrorDecode
	// RecordErrorEncode indicates a msgpack encoding error on append.
	RecordErrorEncode
)

// RecordError represents a journal record encoding or decoding error.
type RecordError struct {
	Kind RecordErrorKind
	Msg  string
	Err  error
}

func (e *RecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Writer appends attempt records to a journal stream.
type Writer struct {
	w io.Writer
	c io.Closer
}

// Open opens (creating if necessary) the journal at path for appending.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Writer{w: f, c: f}, nil
}

// NewWriter wraps an existing stream. Tests use this to capture frames.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Append encodes rec and writes it as a single frame. The prefix and
// payload are written in one call so concurrent appenders to the same
// O_APPEND file cannot interleave within a frame.
func (w *Writer) Append(rec *types.AttemptRecord) error {
	payload, err := msgpack.Marshal(rec)
	if err != nil {
		return &RecordError{Kind: RecordErrorEncode, Msg: "failed to encode attempt record", Err: err}
	}
	if len(payload) > MaxPayloadSize {
		return &RecordError{
			Kind: RecordErrorTooLarge,
			Msg:  fmt.Sprintf("record size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}

	frame := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame[:LengthPrefixSize], uint32(len(payload)))
	copy(frame[LengthPrefixSize:], payload)

	if _, err := w.w.Write(frame); err != nil {
		return fmt.Errorf("append journal record: %w", err)
	}
	return nil
}

// Close closes the underlying file, when Writer owns one.
func (w *Writer) Close() error {
	if w.c == nil {
		return nil
	}
	return w.c.Close()
}

// Reader iterates attempt records from a journal stream.
type Reader struct {
	r io.Reader
	c io.Closer
}

// OpenReader opens the journal at path for reading.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Reader{r: f, c: f}, nil
}

// NewReader wraps an existing stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next reads one record from the stream.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more records)
//   - *RecordError with Kind=RecordErrorPartial: truncated frame
//   - *RecordError with Kind=RecordErrorTooLarge: frame exceeds limit
//   - *RecordError with Kind=RecordErrorDecode: msgpack decode failure
func (r *Reader) Next() (*types.AttemptRecord, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(r.r, lengthBuf[:])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, &RecordError{
			Kind: RecordErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &RecordError{
			Kind: RecordErrorTooLarge,
			Msg:  fmt.Sprintf("record size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, &RecordError{
			Kind: RecordErrorPartial,
			Msg:  "failed to read record payload",
			Err:  err,
		}
	}

	var rec types.AttemptRecord
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return nil, &RecordError{
			Kind: RecordErrorDecode,
			Msg:  "failed to decode attempt record",
			Err:  err,
		}
	}
	return &rec, nil
}

// ReadAll reads every remaining record until clean EOF.
func (r *Reader) ReadAll() ([]types.AttemptRecord, error) {
	var out []types.AttemptRecord
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, *rec)
	}
}

// Close closes the underlying file, when Reader owns one.
func (r *Reader) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}
