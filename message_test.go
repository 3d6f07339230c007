package ldapclient_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dirsync/ldapclient"
)

func TestMessageEncodeDecodeRoundTrip(t *testing.T) {
	msg := &ldapclient.Message{
		MessageID: 7,
		ProtocolOp: ldapclient.BerRawElement{
			Type: ldapclient.TypeUnbindRequestOp,
			Data: []byte{},
		},
	}
	encoded := msg.EncodeWithHeader()
	decoded, err := ldapclient.ReadLDAPMessage(bytes.NewReader(encoded))
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if decoded.MessageID != 7 {
		t.Error("wrong message ID")
	}
	if decoded.ProtocolOp.Type != ldapclient.TypeUnbindRequestOp {
		t.Error("wrong protocol op type")
	}
	if len(decoded.Controls) != 0 {
		t.Error("expected no controls")
	}
}

func TestMessageWithControls(t *testing.T) {
	msg := &ldapclient.Message{
		MessageID: 1,
		ProtocolOp: ldapclient.BerRawElement{
			Type: ldapclient.TypeUnbindRequestOp,
			Data: []byte{},
		},
		Controls: []ldapclient.Control{
			{OID: "1.2.840.113556.1.4.319", Criticality: true, ControlValue: "paged"},
		},
	}
	encoded := msg.EncodeWithHeader()
	decoded, err := ldapclient.ReadLDAPMessage(bytes.NewReader(encoded))
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if len(decoded.Controls) != 1 {
		t.Fatal("expected one control")
	}
	c := decoded.Controls[0]
	if c.OID != "1.2.840.113556.1.4.319" {
		t.Error("wrong control OID")
	}
	if !c.Criticality {
		t.Error("wrong control criticality")
	}
	if c.ControlValue != "paged" {
		t.Error("wrong control value")
	}
}

func TestReadLDAPMessageLimitedRejectsOversized(t *testing.T) {
	msg := &ldapclient.Message{
		MessageID: 1,
		ProtocolOp: ldapclient.BerRawElement{
			Type: ldapclient.TypeUnbindRequestOp,
			Data: []byte{},
		},
	}
	encoded := msg.EncodeWithHeader()
	_, err := ldapclient.ReadLDAPMessageLimited(bytes.NewReader(encoded), 1)
	if !errors.Is(err, ldapclient.ErrIntegerTooLarge) {
		t.Fatal("expected ErrIntegerTooLarge for oversized message, got", err)
	}

	decoded, err := ldapclient.ReadLDAPMessageLimited(bytes.NewReader(encoded), 1024)
	if err != nil {
		t.Fatal("unexpected error under a generous maxLength:", err)
	}
	if decoded.MessageID != 1 {
		t.Error("wrong message ID")
	}
}

func TestReadLDAPMessageWrongElementType(t *testing.T) {
	_, err := ldapclient.ReadLDAPMessage(bytes.NewReader([]byte{byte(ldapclient.BerTypeBoolean), 0x01, 0x00}))
	if err == nil {
		t.Fatal("expected error for a non-sequence top-level element")
	}
}
