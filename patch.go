package purity

import (
	"fmt"
	"io"
	"os"

	"github.com/wagiedev/purity-go/internal/fudi"
)

// Patch is an ordered batch of messages that builds or edits a Pd patch.
type Patch interface {
	Messages() []Message
}

// MessageList is the simplest Patch: messages sent as listed.
type MessageList []Message

// Compile-time check that MessageList implements Patch.
var _ Patch = MessageList(nil)

// Messages implements Patch.
func (l MessageList) Messages() []Message {
	return l
}

// Add appends a message and returns the list for chaining.
func (l MessageList) Add(selector string, atoms ...Atom) MessageList {
	return append(l, fudi.NewMessage(selector, atoms...))
}

// ParsePatch reads FUDI text, one message per ';', into a MessageList.
// Blank messages are skipped.
func ParsePatch(r io.Reader) (MessageList, error) {
	msgs, err := fudi.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}

	return msgs, nil
}

// ReadPatchFile parses the FUDI patch file at path.
func ReadPatchFile(path string) (MessageList, error) {
	f, err := os.Open(path) //nolint:gosec // G304: reading a user-chosen patch file
	if err != nil {
		return nil, fmt.Errorf("open patch: %w", err)
	}
	defer f.Close()

	return ParsePatch(f)
}
