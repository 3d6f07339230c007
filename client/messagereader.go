package client

import (
	"bufio"
	"errors"
	"io"

	"github.com/dirsync/ldapclient"
)

// MessageReader streams LDAPMessages off an io.Reader, built over a
// bufio.Reader the same way message.go's ReadLDAPMessage is built over a
// plain io.Reader/io.ByteReader split. ReadNext blocks until a full
// message has arrived, except that a non-blocking underlying reader
// reporting io.ErrNoProgress (no bytes yet, no error) yields (nil, nil)
// instead of being treated as fatal, so a caller polling such a reader can
// retry.
type MessageReader struct {
	br             *bufio.Reader
	maxMessageSize uint32
}

// NewMessageReader wraps r in a buffered reader. maxMessageSize bounds the
// declared length of the outer LDAPMessage SEQUENCE; 0 means unbounded.
func NewMessageReader(r io.Reader, maxMessageSize uint32) *MessageReader {
	return &MessageReader{br: bufio.NewReader(r), maxMessageSize: maxMessageSize}
}

// ReadNext reads and decodes the next LDAPMessage, or returns the I/O
// error that stopped it (io.EOF on orderly close).
func (mr *MessageReader) ReadNext() (*ldapclient.Message, error) {
	msg, err := ldapclient.ReadLDAPMessageLimited(mr.br, mr.maxMessageSize)
	if err != nil {
		if errors.Is(err, io.ErrNoProgress) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}
