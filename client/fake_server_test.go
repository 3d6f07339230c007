package client_test

import (
	"net"
	"testing"

	"github.com/dirsync/ldapclient"
)

// fakeServer is a bare TCP listener that hands each accepted connection to
// a handler goroutine, grounded on the same "net.Listen then Accept loop"
// shape ldapserver.Server uses on the production side, turned into a test
// double that plays the server role opposite this repo's client.
type fakeServer struct {
	ln net.Listener
}

func newFakeServer(t *testing.T, handle func(t *testing.T, conn net.Conn)) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	fs := &fakeServer{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(t, conn)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return fs
}

func (fs *fakeServer) addr() string {
	return fs.ln.Addr().String()
}

func readRequest(t *testing.T, conn net.Conn) *ldapclient.Message {
	t.Helper()
	msg, err := ldapclient.ReadLDAPMessage(conn)
	if err != nil {
		return nil
	}
	return msg
}

func writeResponse(t *testing.T, conn net.Conn, id ldapclient.MessageID, op ldapclient.BerType, body []byte) {
	t.Helper()
	msg := &ldapclient.Message{MessageID: id, ProtocolOp: ldapclient.BerRawElement{Type: op, Data: body}}
	if _, err := conn.Write(msg.EncodeWithHeader()); err != nil {
		t.Log("write response:", err)
	}
}
