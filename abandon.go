package ldapclient

// AbandonRequest ::= [APPLICATION 16] MessageID
type AbandonRequest struct {
	MessageID MessageID
}

// Return the BER-encoded struct (without element header, i.e. just the raw integer bytes)
func (r *AbandonRequest) Encode() []byte {
	return BerEncodeIntegerRaw(int64(r.MessageID))
}

// Return an AbandonRequest from BER-encoded data
func GetAbandonRequest(data []byte) (*AbandonRequest, error) {
	id, err := BerGetInteger(data)
	if err != nil {
		return nil, err
	}
	if id < 0 || id > maxInt {
		return nil, ErrInvalidMessageID.WithInfo("AbandonRequest messageID", id)
	}
	return &AbandonRequest{MessageID: MessageID(id)}, nil
}

// UnbindRequest ::= [APPLICATION 2] NULL
type UnbindRequest struct{}

// Return the BER-encoded struct (without element header, i.e. empty)
func (r *UnbindRequest) Encode() []byte {
	return nil
}
