package journal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/glennpratt/retry/iox"
	"github.com/glennpratt/retry/types"
)

func testRecord(seq int, code int, stop bool) *types.AttemptRecord {
	return &types.AttemptRecord{
		RunID:      "01JXAMPLE0000000000000RUN1",
		Seq:        seq,
		Outcome:    "exited",
		Code:       code,
		StartedAt:  "2026-08-24T12:00:00Z",
		DurationMs: 42,
		ElapsedMs:  int64(seq) * 50,
		Stop:       stop,
	}
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	records := []*types.AttemptRecord{
		testRecord(1, 1, false),
		testRecord(2, 1, false),
		testRecord(3, 0, true),
	}
	for _, rec := range records {
		if err := w.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(got))
	}
	for i, rec := range records {
		if got[i] != *rec {
			t.Errorf("record %d = %+v, want %+v", i, got[i], *rec)
		}
	}
}

func TestRoundTrip_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attempts.journal")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	if err := w.Append(testRecord(1, 0, true)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	// A second Open must append, not truncate.
	w, err = Open(path)
	if err != nil {
		t.Fatalf("reopen writer: %v", err)
	}
	if err := w.Append(testRecord(2, 0, true)); err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	iox.DiscardClose(w)

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer iox.DiscardClose(r)

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Seq != 1 || got[1].Seq != 2 {
		t.Errorf("unexpected sequence: %d, %d", got[0].Seq, got[1].Seq)
	}
}

func TestNext_TruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Append(testRecord(1, 0, true)); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Chop the last byte off the frame.
	truncated := buf.Bytes()[:buf.Len()-1]

	_, err := NewReader(bytes.NewReader(truncated)).Next()
	var recErr *RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *RecordError, got %v", err)
	}
	if recErr.Kind != RecordErrorPartial {
		t.Errorf("expected RecordErrorPartial, got %d", recErr.Kind)
	}
}

func TestNext_TruncatedPrefix(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{0x00, 0x00})).Next()
	var recErr *RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *RecordError, got %v", err)
	}
	if recErr.Kind != RecordErrorPartial {
		t.Errorf("expected RecordErrorPartial, got %d", recErr.Kind)
	}
}

func TestNext_Oversized(t *testing.T) {
	var buf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(buf[:], MaxPayloadSize+1)

	_, err := NewReader(bytes.NewReader(buf[:])).Next()
	var recErr *RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *RecordError, got %v", err)
	}
	if recErr.Kind != RecordErrorTooLarge {
		t.Errorf("expected RecordErrorTooLarge, got %d", recErr.Kind)
	}
}

func TestNext_DecodeFailure(t *testing.T) {
	// Valid prefix, garbage payload.
	payload := []byte{0xc1, 0xc1, 0xc1, 0xc1}
	frame := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame[:LengthPrefixSize], uint32(len(payload)))
	copy(frame[LengthPrefixSize:], payload)

	_, err := NewReader(bytes.NewReader(frame)).Next()
	var recErr *RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *RecordError, got %v", err)
	}
	if recErr.Kind != RecordErrorDecode {
		t.Errorf("expected RecordErrorDecode, got %d", recErr.Kind)
	}
}

func TestNext_CleanEOF(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil)).Next()
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestRecordError_Kinds(t *testing.T) {
	// Encode and decode failures are distinct kinds; a reader inspecting
	// a journal error must be able to tell which direction broke.
	kinds := []RecordErrorKind{
		RecordErrorPartial,
		RecordErrorTooLarge,
		RecordErrorDecode,
		RecordErrorEncode,
	}
	seen := make(map[RecordErrorKind]bool, len(kinds))
	for _, k := range kinds {
		if seen[k] {
			t.Fatalf("kind %d is not distinct", k)
		}
		seen[k] = true
	}

	cause := errors.New("boom")
	err := &RecordError{Kind: RecordErrorEncode, Msg: "failed to encode attempt record", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("RecordError should unwrap to its cause")
	}
	if err.Error() != "failed to encode attempt record: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestReadAll_StopsAtTruncatedTail(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Append(testRecord(1, 1, false)); err != nil {
		t.Fatalf("append: %v", err)
	}
	// Simulate a crash mid-append of the second record.
	buf.Write([]byte{0x00, 0x00, 0x00, 0x10, 0xde})

	got, err := NewReader(&buf).ReadAll()
	var recErr *RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *RecordError, got %v", err)
	}
	if len(got) != 1 || got[0].Seq != 1 {
		t.Errorf("expected the one intact record before the tail, got %+v", got)
	}
}
