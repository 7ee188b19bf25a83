package fudi

import (
	"bytes"
	"strings"

	"github.com/wagiedev/purity-go/internal/errors"
)

// Terminator ends every encoded message.
const Terminator = " ;\r\n"

// Delimiter separates messages on the wire.
const Delimiter = ';'

// Message is a selector followed by its atoms.
type Message struct {
	Selector string
	Atoms    []Atom
}

// NewMessage builds a message from a selector and atoms.
func NewMessage(selector string, atoms ...Atom) Message {
	return Message{Selector: selector, Atoms: atoms}
}

// String renders the message without its terminator, for logs.
func (m Message) String() string {
	var b strings.Builder

	b.WriteString(m.Selector)

	for _, a := range m.Atoms {
		b.WriteByte(' ')
		b.WriteString(a.Text())
	}

	return b.String()
}

// Validate checks that the message can be framed.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Selector) == "" {
		return errors.ErrEmptySelector
	}

	if hasDelimiter(m.Selector) {
		return errors.ErrInvalidAtom
	}

	for _, a := range m.Atoms {
		if a.kind == KindString && hasDelimiter(a.s) {
			return errors.ErrInvalidAtom
		}
	}

	return nil
}

func hasDelimiter(s string) bool {
	return strings.ContainsAny(s, ";\r\n")
}

// Encode renders a message as "selector atom1 atom2 ;\r\n".
//
// Spaces inside String atoms are not escaped; callers must avoid them.
func Encode(m Message) ([]byte, error) {
	return AppendEncode(nil, m)
}

// AppendEncode appends the encoded message to dst.
func AppendEncode(dst []byte, m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return dst, err
	}

	dst = append(dst, m.Selector...)

	for _, a := range m.Atoms {
		dst = append(dst, ' ')
		dst = append(dst, a.Text()...)
	}

	return append(dst, Terminator...), nil
}

// Decode parses one message body as produced by ScanMessages.
//
// Anything after the first ';' is discarded. A line without tokens returns
// errors.ErrSkip; every other input decodes, with unparseable tokens kept as
// String atoms.
func Decode(line []byte) (Message, error) {
	if i := bytes.IndexByte(line, Delimiter); i >= 0 {
		line = line[:i]
	}

	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return Message{}, errors.ErrSkip
	}

	atoms := make([]Atom, 0, len(fields)-1)
	for _, tok := range fields[1:] {
		atoms = append(atoms, Parse(tok))
	}

	return Message{Selector: fields[0], Atoms: atoms}, nil
}
