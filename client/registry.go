package client

import (
	"sync"

	"github.com/dirsync/ldapclient"
)

// DecodeFunc turns a raw response-control or extended-response value into
// an application-level representation.
type DecodeFunc func([]byte) (any, error)

var (
	extendedDecodersMu sync.Mutex
	extendedDecoders   = map[ldapclient.OID]DecodeFunc{}

	controlDecodersMu sync.Mutex
	controlDecoders   = map[ldapclient.OID]DecodeFunc{}
)

// RegisterExtendedResponseDecoder registers a decoder for the response
// value of an extended operation identified by oid. Append-only, like the
// teacher's OID table in oid.go; intended to be called during program
// init before any Dial, not concurrently with request dispatch.
func RegisterExtendedResponseDecoder(oid ldapclient.OID, decode DecodeFunc) {
	extendedDecodersMu.Lock()
	defer extendedDecodersMu.Unlock()
	extendedDecoders[oid] = decode
}

func lookupExtendedResponseDecoder(oid ldapclient.OID) (DecodeFunc, bool) {
	extendedDecodersMu.Lock()
	defer extendedDecodersMu.Unlock()
	d, ok := extendedDecoders[oid]
	return d, ok
}

// RegisterControlDecoder registers a decoder for the value of a response
// control identified by oid. A control with no registered decoder is left
// opaque on LDAPResult.Controls; a decode failure for one that is
// registered is recorded in LDAPResult.ControlDecodeErrors without
// invalidating the rest of the response.
func RegisterControlDecoder(oid ldapclient.OID, decode DecodeFunc) {
	controlDecodersMu.Lock()
	defer controlDecodersMu.Unlock()
	controlDecoders[oid] = decode
}

func lookupControlDecoder(oid ldapclient.OID) (DecodeFunc, bool) {
	controlDecodersMu.Lock()
	defer controlDecodersMu.Unlock()
	d, ok := controlDecoders[oid]
	return d, ok
}
