package fudi

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/wagiedev/purity-go/internal/errors"
)

const (
	// MaxMessageSize is the longest message body a reader accepts.
	MaxMessageSize = 16 * 1024

	initialScanBufferSize = 4 * 1024
)

// ScanMessages is a bufio.SplitFunc that yields the bytes before each ';'.
//
// Trailing bytes at EOF without a terminating ';' are dropped: an incomplete
// message is never dispatched.
func ScanMessages(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, Delimiter); i >= 0 {
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), nil, nil
	}

	return 0, nil, nil
}

// NewScanner returns a scanner that splits r into message bodies.
// Scan fails with bufio.ErrTooLong once a pending body fills MaxMessageSize bytes.
func NewScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initialScanBufferSize), MaxMessageSize)
	scanner.Split(ScanMessages)

	return scanner
}

// ReadAll decodes every complete message in r, skipping blank ones.
func ReadAll(r io.Reader) ([]Message, error) {
	var messages []Message

	scanner := NewScanner(r)
	for scanner.Scan() {
		msg, err := Decode(scanner.Bytes())
		if stderrors.Is(err, errors.ErrSkip) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("message %d: %w", len(messages), err)
		}

		messages = append(messages, msg)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("message %d: %w", len(messages), err)
	}

	return messages, nil
}
