package client

import (
	"errors"
	"net"
	"time"

	"github.com/dirsync/ldapclient"
)

// opPair maps a request value to its request/response application tags.
func opPair(req any) (reqOp, respOp ldapclient.BerType, isSearch bool, ok bool) {
	switch req.(type) {
	case *ldapclient.BindRequest:
		return ldapclient.TypeBindRequestOp, ldapclient.TypeBindResponseOp, false, true
	case *ldapclient.SearchRequest:
		return ldapclient.TypeSearchRequestOp, 0, true, true
	case *ldapclient.AddRequest:
		return ldapclient.TypeAddRequestOp, ldapclient.TypeAddResponseOp, false, true
	case *ldapclient.DelRequest:
		return ldapclient.TypeDeleteRequestOp, ldapclient.TypeDeleteResponseOp, false, true
	case *ldapclient.ModifyRequest:
		return ldapclient.TypeModifyRequestOp, ldapclient.TypeModifyResponseOp, false, true
	case *ldapclient.ModifyDNRequest:
		return ldapclient.TypeModifyDNRequestOp, ldapclient.TypeModifyDNResponseOp, false, true
	case *ldapclient.CompareRequest:
		return ldapclient.TypeCompareRequestOp, ldapclient.TypeCompareResponseOp, false, true
	case *ldapclient.ExtendedRequest:
		return ldapclient.TypeExtendedRequestOp, ldapclient.TypeExtendedResponseOp, false, true
	default:
		return 0, 0, false, false
	}
}

// validatable is implemented by request types that can detect, without
// touching the wire, that they can never succeed (spec §7's "local
// misuse": nil DN, unknown scope, empty new RDN, ...).
type validatable interface {
	Validate() error
}

// checkSendable returns a local_error result (never touching the wire)
// when the connection is not in a state that can send, or when req fails
// its own Validate check.
func (c *Conn) checkSendable(req any) error {
	switch c.State() {
	case StateDisconnected, StateClosing:
		return localResult(ldapclient.ResultLocalError, "connection is not established")
	}
	if v, ok := req.(validatable); ok {
		if err := v.Validate(); err != nil {
			return localResult(ldapclient.ResultLocalError, err.Error())
		}
	}
	return nil
}

// Send dispatches any of the *Request types in the root ldapclient package
// and returns a handle to its response(s). For a *ldapclient.SearchRequest
// the returned value is a *SearchHandle; for every other request it is a
// *LDAPResult (delivered once the terminal response arrives, honoring any
// WithTimeout).
func (c *Conn) Send(req encodable, opts ...RequestOption) (any, error) {
	reqOp, respOp, isSearch, ok := opPair(req)
	if !ok {
		return nil, ldapclient.ErrWrongElementType
	}
	if err := c.checkSendable(req); err != nil {
		return nil, err
	}
	rc := &requestConfig{timeout: c.cfg.responseTimeout}
	for _, o := range opts {
		o(rc)
	}

	id := c.allocateID()

	if c.cfg.synchronous {
		return c.sendSync(req, id, reqOp, respOp, isSearch, rc.timeout, opts)
	}

	var a acceptor
	if isSearch {
		a = newSearchAcceptor(c.cfg.lenientTextualValues)
	} else {
		a = newSingleAcceptor()
	}
	c.registerAcceptor(id, a)

	msg := &ldapclient.Message{MessageID: id, ProtocolOp: ldapclient.BerRawElement{Type: reqOp, Data: req.Encode()}}
	if err := c.writeMessage(msg); err != nil {
		c.deregisterAcceptor(id)
		return nil, localResult(ldapclient.ResultServerDown, err.Error())
	}

	if isSearch {
		sa := a.(*searchAcceptor)
		if rc.timeout > 0 {
			go c.watchTimeout(id, rc.timeout)
		}
		if c.cfg.followReferrals {
			return c.chaseSearchReferral(sa.handle, req, opts...), nil
		}
		return sa.handle, nil
	}

	sa := a.(*singleAcceptor)
	var timer *time.Timer
	if rc.timeout > 0 {
		timer = time.AfterFunc(rc.timeout, func() { c.timeoutAcceptor(id) })
	}
	var result *LDAPResult
	select {
	case raw := <-sa.rawCh:
		if timer != nil {
			timer.Stop()
		}
		if raw.ProtocolOp.Type != respOp {
			return nil, localResult(ldapclient.ResultLocalError, "unexpected response op")
		}
		result, err := c.decodeResponse(req, id, raw)
		if err != nil {
			return nil, err
		}
		if c.cfg.followReferrals && result.ResultCode == ldapclient.LDAPResultReferral {
			chased, rc2, cerr := c.chaseReferral(result, req, 1, opts...)
			if cerr == nil && rc2 != nil {
				return chased, nil
			}
		}
		return result, nil
	case result = <-sa.resultCh:
		return nil, result
	}
}

// sendSync is Send's WithSynchronousMode(true) path: no reader goroutine
// runs, so the calling goroutine itself drains the socket through
// syncReader. Non-search requests block directly; a search request still
// needs a producer/consumer split (SearchHandle's channels must fill while
// the caller drains them later), so it gets a goroutine scoped to just
// this one in-flight search, consistent with synchronous mode's
// single-outstanding-request contract.
func (c *Conn) sendSync(req encodable, id ldapclient.MessageID, reqOp, respOp ldapclient.BerType, isSearch bool, timeout time.Duration, opts []RequestOption) (any, error) {
	msg := &ldapclient.Message{MessageID: id, ProtocolOp: ldapclient.BerRawElement{Type: reqOp, Data: req.Encode()}}
	if err := c.writeMessage(msg); err != nil {
		return nil, localResult(ldapclient.ResultServerDown, err.Error())
	}

	if isSearch {
		a := newSearchAcceptor(c.cfg.lenientTextualValues)
		go c.syncSearchLoop(id, a, timeout)
		if c.cfg.followReferrals {
			return c.chaseSearchReferral(a.handle, req, opts...), nil
		}
		return a.handle, nil
	}

	raw, err := c.recvSync(id, timeout, reqOp == ldapclient.TypeBindRequestOp)
	if err != nil {
		return nil, err
	}
	if raw.ProtocolOp.Type != respOp {
		return nil, localResult(ldapclient.ResultLocalError, "unexpected response op")
	}
	result, err := c.decodeResponse(req, id, raw)
	if err != nil {
		return nil, err
	}
	if c.cfg.followReferrals && result.ResultCode == ldapclient.LDAPResultReferral {
		chased, rc2, cerr := c.chaseReferral(result, req, 1, opts...)
		if cerr == nil && rc2 != nil {
			return chased, nil
		}
	}
	return result, nil
}

// syncSearchLoop feeds a's channels from the connection's synchronous
// reader until the search's SearchResultDone arrives, the read times out,
// or the socket fails. Mirrors readLoop's per-message dispatch, narrowed
// to the single message ID this search owns.
func (c *Conn) syncSearchLoop(id ldapclient.MessageID, a *searchAcceptor, timeout time.Duration) {
	deadline := syncDeadline(timeout)
	for {
		raw, err := c.readMessageSync(deadline)
		if err != nil {
			if isTimeout(err) {
				if c.cfg.abandonOnTimeout {
					go c.Abandon(id)
				}
				a.fail(localResult(ldapclient.ResultTimeout, "request timed out"))
				return
			}
			a.fail(localResult(ldapclient.ResultServerDown, err.Error()))
			return
		}
		if raw.MessageID != id {
			continue
		}
		if a.deliver(raw) {
			return
		}
	}
}

// recvSync blocks the calling goroutine until the message with id arrives,
// the read deadline set from timeout expires, or the socket fails. A
// timed-out Bind closes the connection instead of abandoning, since the
// protocol has no Abandon for Bind (RFC 4511 §4.2).
func (c *Conn) recvSync(id ldapclient.MessageID, timeout time.Duration, isBind bool) (*ldapclient.Message, error) {
	deadline := syncDeadline(timeout)
	for {
		raw, err := c.readMessageSync(deadline)
		if err != nil {
			if isTimeout(err) {
				if isBind {
					go c.Close()
					return nil, localResult(ldapclient.ResultTimeout, "bind request timed out")
				}
				if c.cfg.abandonOnTimeout {
					go c.Abandon(id)
				}
				return nil, localResult(ldapclient.ResultTimeout, "request timed out")
			}
			return nil, localResult(ldapclient.ResultServerDown, err.Error())
		}
		if raw.MessageID != id {
			continue
		}
		return raw, nil
	}
}

func syncDeadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// readMessageSync reads the next message off the connection's persistent
// syncReader, bounding the read with deadline (the zero Time disables the
// bound). A net.Error satisfying Timeout() is what SetReadDeadline turns a
// blocked read into; every other error is treated as connection failure.
func (c *Conn) readMessageSync(deadline time.Time) (*ldapclient.Message, error) {
	c.netConnMu.Lock()
	nc := c.netConn
	c.netConnMu.Unlock()
	if err := nc.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	defer nc.SetReadDeadline(time.Time{})
	for {
		msg, err := c.syncReader.ReadNext()
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue
		}
		return msg, nil
	}
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func (c *Conn) watchTimeout(id ldapclient.MessageID, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	<-t.C
	c.timeoutAcceptor(id)
}

func (c *Conn) timeoutAcceptor(id ldapclient.MessageID) {
	c.idMu.Lock()
	a, ok := c.acceptors[id]
	delete(c.acceptors, id)
	c.idMu.Unlock()
	if !ok {
		return
	}
	a.fail(localResult(ldapclient.ResultTimeout, "request timed out"))
	if c.cfg.abandonOnTimeout {
		go c.Abandon(id)
	}
}

// timeoutBindAcceptor handles a timed-out Bind. The protocol has no Abandon
// for Bind (RFC 4511 §4.2), so the only way to give up on it is to close
// the connection entirely.
func (c *Conn) timeoutBindAcceptor(id ldapclient.MessageID) {
	c.idMu.Lock()
	a, ok := c.acceptors[id]
	delete(c.acceptors, id)
	c.idMu.Unlock()
	if !ok {
		return
	}
	a.fail(localResult(ldapclient.ResultTimeout, "bind request timed out"))
	go c.Close()
}

// decodeResult turns the terminal raw Message for a non-search request
// into its *LDAPResult, for callers that only need the result portion
// (all but Bind, which needs ServerSASLCredentials too and decodes the raw
// message itself in Bind/BindSASL).
func (c *Conn) decodeResult(id ldapclient.MessageID, raw *ldapclient.Message) (*LDAPResult, error) {
	res, err := ldapclient.GetResult(raw.ProtocolOp.Data)
	if err != nil {
		return nil, localResult(ldapclient.ResultLocalError, err.Error())
	}
	lr := fromWireResult(id, res, raw.Controls)
	return lr, nil
}

// decodeResponse is decodeResult generalized to ExtendedRequest, whose
// response carries an extra responseName/responseValue pair that GetResult
// cannot parse (it rejects any LDAPResult sequence outside 3-4 elements).
// req is the original request value, used only to pick the decode shape.
func (c *Conn) decodeResponse(req any, id ldapclient.MessageID, raw *ldapclient.Message) (*LDAPResult, error) {
	if _, ok := req.(*ldapclient.ExtendedRequest); ok {
		return c.decodeExtendedResult(id, raw)
	}
	return c.decodeResult(id, raw)
}

// decodeExtendedResult decodes an ExtendedResult and, when a decoder was
// registered for its responseName via RegisterExtendedResponseDecoder,
// populates DecodedExtendedValue from responseValue.
func (c *Conn) decodeExtendedResult(id ldapclient.MessageID, raw *ldapclient.Message) (*LDAPResult, error) {
	res, err := ldapclient.GetExtendedResult(raw.ProtocolOp.Data)
	if err != nil {
		return nil, localResult(ldapclient.ResultLocalError, err.Error())
	}
	lr := fromWireResult(id, &res.Result, raw.Controls)
	lr.ExtendedResponseName = res.ResponseName
	lr.ExtendedResponseValue = res.ResponseValue
	if res.ResponseName != "" {
		if decode, ok := lookupExtendedResponseDecoder(res.ResponseName); ok {
			if v, err := decode([]byte(res.ResponseValue)); err == nil {
				lr.DecodedExtendedValue = v
			}
		}
	}
	return lr, nil
}

// Bind performs a simple or SASL bind depending on req.AuthType, returning
// the decoded BindResult (which carries ServerSASLCredentials) alongside
// the client-shaped LDAPResult.
func (c *Conn) Bind(req *ldapclient.BindRequest, opts ...RequestOption) (*ldapclient.BindResult, error) {
	if c.cfg.bindDNRequiresPassword && req.AuthType == ldapclient.AuthenticationTypeSimple && req.Name != "" {
		if s, _ := req.Credentials.(string); s == "" {
			return nil, localResult(ldapclient.LDAPResultInappropriateAuthentication, "password required for named simple bind")
		}
	}
	raw, err := c.sendRaw(req, ldapclient.TypeBindRequestOp, ldapclient.TypeBindResponseOp, opts...)
	if err != nil {
		return nil, err
	}
	res, err := ldapclient.GetBindResult(raw.ProtocolOp.Data)
	if err != nil {
		return nil, localResult(ldapclient.ResultLocalError, err.Error())
	}
	if res.ResultCode == ldapclient.ResultSuccess {
		c.stateMu.Lock()
		c.bound = true
		c.stateMu.Unlock()
	}
	return res, nil
}

// sendRaw is like Send but returns the raw terminal Message instead of a
// decoded LDAPResult, for callers (Bind) that need response-specific
// fields beyond LDAPResult.
func (c *Conn) sendRaw(req encodable, reqOp, respOp ldapclient.BerType, opts ...RequestOption) (*ldapclient.Message, error) {
	if err := c.checkSendable(req); err != nil {
		return nil, err
	}
	rc := &requestConfig{timeout: c.cfg.responseTimeout}
	for _, o := range opts {
		o(rc)
	}
	id := c.allocateID()

	if c.cfg.synchronous {
		return c.sendRawSync(req, id, reqOp, respOp, rc.timeout)
	}

	a := newSingleAcceptor()
	c.registerAcceptor(id, a)
	msg := &ldapclient.Message{MessageID: id, ProtocolOp: ldapclient.BerRawElement{Type: reqOp, Data: req.Encode()}}
	if err := c.writeMessage(msg); err != nil {
		c.deregisterAcceptor(id)
		return nil, localResult(ldapclient.ResultServerDown, err.Error())
	}
	var timer *time.Timer
	if rc.timeout > 0 {
		if reqOp == ldapclient.TypeBindRequestOp {
			timer = time.AfterFunc(rc.timeout, func() { c.timeoutBindAcceptor(id) })
		} else {
			timer = time.AfterFunc(rc.timeout, func() { c.timeoutAcceptor(id) })
		}
	}
	select {
	case raw := <-a.rawCh:
		if timer != nil {
			timer.Stop()
		}
		if raw.ProtocolOp.Type != respOp {
			return nil, localResult(ldapclient.ResultLocalError, "unexpected response op")
		}
		return raw, nil
	case result := <-a.resultCh:
		return nil, result
	}
}

// sendRawSync is sendRaw's WithSynchronousMode(true) path: the calling
// goroutine writes and then blocks reading off syncReader directly, the
// same way sendSync does for the non-search Send path.
func (c *Conn) sendRawSync(req encodable, id ldapclient.MessageID, reqOp, respOp ldapclient.BerType, timeout time.Duration) (*ldapclient.Message, error) {
	msg := &ldapclient.Message{MessageID: id, ProtocolOp: ldapclient.BerRawElement{Type: reqOp, Data: req.Encode()}}
	if err := c.writeMessage(msg); err != nil {
		return nil, localResult(ldapclient.ResultServerDown, err.Error())
	}
	raw, err := c.recvSync(id, timeout, reqOp == ldapclient.TypeBindRequestOp)
	if err != nil {
		return nil, err
	}
	if raw.ProtocolOp.Type != respOp {
		return nil, localResult(ldapclient.ResultLocalError, "unexpected response op")
	}
	return raw, nil
}
