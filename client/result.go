package client

import "github.com/dirsync/ldapclient"

// LDAPResult is the client-side superset of ldapclient.Result: it adds the
// MessageID a response correlates to and the decoded response Controls,
// and satisfies the error interface so it can be returned directly from a
// request method without a separate wrapping error.
type LDAPResult struct {
	MessageID           ldapclient.MessageID
	ResultCode          ldapclient.LDAPResultCode
	MatchedDN           string
	DiagnosticMessage   string
	Referral            []string
	Controls            []ldapclient.Control
	ControlDecodeErrors map[ldapclient.OID]error
	// DecodedControls holds the value a registered RegisterControlDecoder
	// produced for a response control, keyed by OID. A control with no
	// registered decoder, or one that failed decoding, has no entry here.
	DecodedControls map[ldapclient.OID]any

	// ExtendedResponseName and ExtendedResponseValue carry an extended
	// operation's response OID and raw value; DecodedExtendedValue is the
	// result of the decoder registered for ExtendedResponseName via
	// RegisterExtendedResponseDecoder, if any.
	ExtendedResponseName  ldapclient.OID
	ExtendedResponseValue string
	DecodedExtendedValue  any
}

func (r *LDAPResult) Error() string {
	if r == nil {
		return "<nil>"
	}
	if r.DiagnosticMessage == "" {
		return r.ResultCode.String()
	}
	return r.ResultCode.String() + ": " + r.DiagnosticMessage
}

// Ok reports whether the result code indicates success.
func (r *LDAPResult) Ok() bool {
	return r.ResultCode == ldapclient.ResultSuccess
}

func fromWireResult(messageID ldapclient.MessageID, res *ldapclient.Result, controls []ldapclient.Control) *LDAPResult {
	lr := &LDAPResult{
		MessageID:         messageID,
		ResultCode:        res.ResultCode,
		MatchedDN:         res.MatchedDN,
		DiagnosticMessage: res.DiagnosticMessage,
		Referral:          res.Referral,
	}
	lr.decodeControls(controls)
	return lr
}

func (lr *LDAPResult) decodeControls(controls []ldapclient.Control) {
	for _, c := range controls {
		lr.Controls = append(lr.Controls, c)
		decode, ok := lookupControlDecoder(c.OID)
		if !ok {
			continue
		}
		v, err := decode([]byte(c.ControlValue))
		if err != nil {
			if lr.ControlDecodeErrors == nil {
				lr.ControlDecodeErrors = map[ldapclient.OID]error{}
			}
			lr.ControlDecodeErrors[c.OID] = err
			continue
		}
		if lr.DecodedControls == nil {
			lr.DecodedControls = map[ldapclient.OID]any{}
		}
		lr.DecodedControls[c.OID] = v
	}
}

func localResult(code ldapclient.LDAPResultCode, message string) *LDAPResult {
	return &LDAPResult{ResultCode: code, DiagnosticMessage: message}
}
