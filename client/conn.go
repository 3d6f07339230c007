package client

import (
	"bytes"
	"crypto/tls"
	"errors"
	"io"
	"log"
	"net"
	"sync"

	"github.com/dirsync/ldapclient"
)

// State is the connection lifecycle state described by the Disconnected ->
// Connecting -> Connected -> [Securing] -> Bound? -> Closing ->
// Disconnected machine.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSecuring
	StateClosing
)

// Conn is a client connection to an LDAP server. It owns a dialed
// net.Conn, a reader goroutine demultiplexing responses by message ID into
// acceptors, and the message-ID allocator, mirroring the teacher's
// ldapserver.Conn turned around to the client direction.
type Conn struct {
	cfg *config

	netConnMu sync.Mutex
	netConn   net.Conn

	// tlsStarting serializes StartTLS against concurrent Send, the same
	// way ldapserver.Conn.tlsStarting does on the server side.
	tlsStarting sync.Mutex
	isTLS       bool

	// sending serializes writes to the socket.
	sending sync.Mutex

	stateMu sync.Mutex
	state   State
	bound   bool

	idMu      sync.Mutex
	nextID    ldapclient.MessageID
	acceptors map[ldapclient.MessageID]acceptor

	abandoned sync.Map // ldapclient.MessageID -> struct{}, tombstones for idempotent Abandon

	readerDone chan struct{}

	// syncReader is the synchronous-mode counterpart to readLoop's local
	// MessageReader: one persistent instance per Conn (not one per call),
	// since its bufio.Reader buffers bytes across calls. Set only when
	// WithSynchronousMode(true); nil otherwise.
	syncReader *MessageReader
}

// Dial opens a TCP connection to addr (network is typically "tcp") and
// starts the reader goroutine unless WithSynchronousMode is set.
func Dial(network, addr string, opts ...Option) (*Conn, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	netConn, err := net.DialTimeout(network, addr, cfg.connectTimeout)
	if err != nil {
		return nil, localResult(ldapclient.ResultConnectError, err.Error())
	}
	c := newConn(netConn, cfg)
	c.state = StateConnected
	if cfg.synchronous {
		c.syncReader = NewMessageReader(netConn, cfg.maxMessageSize)
	} else {
		c.readerDone = make(chan struct{})
		go c.readLoop()
	}
	return c, nil
}

// DialTLS opens a TLS connection to addr using tlsConfig, equivalent to Dial
// followed by wrapping the socket in tls.Client before the reader starts.
func DialTLS(network, addr string, tlsConfig *tls.Config, opts ...Option) (*Conn, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	rawConn, err := net.DialTimeout(network, addr, cfg.connectTimeout)
	if err != nil {
		return nil, localResult(ldapclient.ResultConnectError, err.Error())
	}
	tlsConn := tls.Client(rawConn, tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		rawConn.Close()
		return nil, localResult(ldapclient.ResultConnectError, err.Error())
	}
	c := newConn(tlsConn, cfg)
	c.isTLS = true
	c.state = StateConnected
	if cfg.synchronous {
		c.syncReader = NewMessageReader(tlsConn, cfg.maxMessageSize)
	} else {
		c.readerDone = make(chan struct{})
		go c.readLoop()
	}
	return c, nil
}

func newConn(netConn net.Conn, cfg *config) *Conn {
	return &Conn{
		cfg:       cfg,
		netConn:   netConn,
		nextID:    1,
		acceptors: make(map[ldapclient.MessageID]acceptor),
	}
}

// State reports the connection's current lifecycle state.
func (c *Conn) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// StartTLS negotiates TLS on an already-connected, unbound, plaintext
// connection by sending the StartTLS extended request and, on success,
// wrapping the socket in tls.Client. Grounded on
// (*ldapserver.Conn).StartTLS's tlsStarting mutex discipline, reversed: the
// client negotiates instead of accepting.
func (c *Conn) StartTLS(tlsConfig *tls.Config) error {
	c.tlsStarting.Lock()
	defer c.tlsStarting.Unlock()
	if c.isTLS {
		return ldapclient.ErrTLSAlreadySetUp
	}
	c.stateMu.Lock()
	if c.bound {
		c.stateMu.Unlock()
		return errors.New("cannot StartTLS after Bind")
	}
	c.state = StateSecuring
	c.stateMu.Unlock()

	req := &ldapclient.ExtendedRequest{Name: ldapclient.OIDStartTLS}
	res, err := c.sendInline(req, ldapclient.TypeExtendedRequestOp, ldapclient.TypeExtendedResponseOp)
	if err != nil {
		return err
	}
	if res.ResultCode != ldapclient.ResultSuccess {
		return res
	}
	tlsConn := tls.Client(c.netConn, tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		return err
	}
	c.netConnMu.Lock()
	c.netConn = tlsConn
	c.netConnMu.Unlock()
	c.isTLS = true
	c.stateMu.Lock()
	c.state = StateConnected
	c.stateMu.Unlock()
	return nil
}

// sendInline writes a request and reads the single matching response
// directly, bypassing the acceptor registry. Used for StartTLS, which must
// complete before any other traffic (including the reader goroutine, if
// running) touches the socket.
func (c *Conn) sendInline(req encodable, reqOp, respOp ldapclient.BerType) (*LDAPResult, error) {
	id := c.allocateID()
	msg := &ldapclient.Message{MessageID: id, ProtocolOp: ldapclient.BerRawElement{Type: reqOp, Data: req.Encode()}}
	c.sending.Lock()
	_, err := io.Copy(c.netConn, bytes.NewReader(msg.EncodeWithHeader()))
	c.sending.Unlock()
	if err != nil {
		return nil, &LDAPResult{ResultCode: ldapclient.ResultServerDown, DiagnosticMessage: err.Error()}
	}
	reply, err := ldapclient.ReadLDAPMessageLimited(c.netConn, c.cfg.maxMessageSize)
	if err != nil {
		return nil, &LDAPResult{ResultCode: ldapclient.ResultServerDown, DiagnosticMessage: err.Error()}
	}
	if reply.ProtocolOp.Type != respOp {
		return nil, &LDAPResult{ResultCode: ldapclient.ResultLocalError, DiagnosticMessage: "unexpected response op"}
	}
	res, err := ldapclient.GetResult(reply.ProtocolOp.Data)
	if err != nil {
		return nil, &LDAPResult{ResultCode: ldapclient.ResultLocalError, DiagnosticMessage: err.Error()}
	}
	return fromWireResult(id, res, reply.Controls), nil
}

type encodable interface {
	Encode() []byte
}

// allocateID hands out the next message ID, wrapping at the 31-bit wire
// limit and skipping any ID currently owned by a live acceptor.
func (c *Conn) allocateID() ldapclient.MessageID {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	for {
		id := c.nextID
		c.nextID++
		if c.nextID > 2147483647 {
			c.nextID = 1
		}
		if _, live := c.acceptors[id]; !live {
			return id
		}
	}
}

func (c *Conn) registerAcceptor(id ldapclient.MessageID, a acceptor) {
	c.idMu.Lock()
	c.acceptors[id] = a
	c.idMu.Unlock()
}

func (c *Conn) deregisterAcceptor(id ldapclient.MessageID) {
	c.idMu.Lock()
	delete(c.acceptors, id)
	c.idMu.Unlock()
}

func (c *Conn) writeMessage(msg *ldapclient.Message) error {
	c.tlsStarting.Lock()
	defer c.tlsStarting.Unlock()
	c.sending.Lock()
	defer c.sending.Unlock()
	c.netConnMu.Lock()
	nc := c.netConn
	c.netConnMu.Unlock()
	_, err := io.Copy(nc, bytes.NewReader(msg.EncodeWithHeader()))
	return err
}

// readLoop is the reader goroutine: one per Conn, demultiplexing incoming
// messages by ID into registered acceptors. Grounded on
// LDAPServer.handleConnection's read loop, generalized from "dispatch to a
// Handler" to "dispatch to an acceptor map".
func (c *Conn) readLoop() {
	defer close(c.readerDone)
	mr := NewMessageReader(c.netConn, c.cfg.maxMessageSize)
	for {
		msg, err := mr.ReadNext()
		if err != nil {
			c.failAllAcceptors(&LDAPResult{ResultCode: ldapclient.ResultServerDown, DiagnosticMessage: err.Error()})
			return
		}
		if msg == nil {
			continue
		}
		c.idMu.Lock()
		a, ok := c.acceptors[msg.MessageID]
		c.idMu.Unlock()
		if !ok {
			log.Println("ldapclient: response for unknown message ID, dropping:", msg.MessageID)
			continue
		}
		if a.deliver(msg) {
			c.deregisterAcceptor(msg.MessageID)
		}
	}
}

func (c *Conn) failAllAcceptors(result *LDAPResult) {
	c.idMu.Lock()
	pending := c.acceptors
	c.acceptors = make(map[ldapclient.MessageID]acceptor)
	c.idMu.Unlock()
	for _, a := range pending {
		a.fail(result)
	}
}

// Close shuts down the socket, stops the reader goroutine, and resolves
// every outstanding acceptor with ResultServerDown. Mirrors
// (*ldapserver.Conn).Close.
func (c *Conn) Close() error {
	c.stateMu.Lock()
	c.state = StateClosing
	c.stateMu.Unlock()
	c.netConnMu.Lock()
	nc := c.netConn
	c.netConnMu.Unlock()
	err := nc.Close()
	if c.readerDone != nil {
		<-c.readerDone
	} else {
		c.failAllAcceptors(&LDAPResult{ResultCode: ldapclient.ResultServerDown, DiagnosticMessage: "connection closed"})
	}
	c.stateMu.Lock()
	c.state = StateDisconnected
	c.stateMu.Unlock()
	return err
}

// Unbind sends a best-effort UnbindRequest and closes the connection,
// ignoring any error from the write since no response is expected.
func (c *Conn) Unbind() error {
	req := &ldapclient.UnbindRequest{}
	id := c.allocateID()
	msg := &ldapclient.Message{MessageID: id, ProtocolOp: ldapclient.BerRawElement{Type: ldapclient.TypeUnbindRequestOp, Data: req.Encode()}}
	_ = c.writeMessage(msg)
	return c.Close()
}

// Abandon requests that the server stop processing the operation with the
// given message ID and deregisters its acceptor locally. Repeated calls
// for the same ID are a no-op.
func (c *Conn) Abandon(id ldapclient.MessageID) error {
	if _, already := c.abandoned.LoadOrStore(id, struct{}{}); already {
		return nil
	}
	c.idMu.Lock()
	a, ok := c.acceptors[id]
	delete(c.acceptors, id)
	c.idMu.Unlock()
	if ok {
		a.fail(&LDAPResult{ResultCode: ldapclient.ResultCanceled, DiagnosticMessage: "abandoned"})
	}
	req := &ldapclient.AbandonRequest{MessageID: id}
	abandonID := c.allocateID()
	msg := &ldapclient.Message{MessageID: abandonID, ProtocolOp: ldapclient.BerRawElement{Type: ldapclient.TypeAbandonRequestOp, Data: req.Encode()}}
	return c.writeMessage(msg)
}
