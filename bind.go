package ldapclient

import "bytes"

// Type of authentication type codes
type AuthenticationType uint8

// Defined authentication type codes
const (
	AuthenticationTypeSimple AuthenticationType = 0
	// 1-2 reserved
	AuthenticationTypeSASL AuthenticationType = 3
	// extensible, more possible
)

//	SaslCredentials ::= SEQUENCE {
//			mechanism	LDAPString,
//			credentials	OCTET STRING OPTIONAL }
type SASLCredentials struct {
	Mechanism   string
	Credentials string
}

//	BindRequest ::= [APPLICATION 0] SEQUENCE {
//			version         INTEGER (1 ..  127),
//			name            LDAPDN,
//			authentication	AuthenticationChoice }
//
//	AuthenticationChoice ::= CHOICE {
//			simple	[0] OCTET STRING,
//					-- 1 and 2 reserved
//			sasl    [3] SaslCredentials,
//			...  }
type BindRequest struct {
	Version  uint8
	Name     string
	AuthType AuthenticationType
	// For Simple, a string
	// For SASL, a pointer to a SASLCredentials struct
	Credentials any
}

//	BindResult ::= [APPLICATION 1] SEQUENCE {
//			COMPONENTS OF LDAPResult,
//			serverSaslCreds    [7] OCTET STRING OPTIONAL }
type BindResult struct {
	Result
	ServerSASLCredentials string
}

// Return a BindRequest from BER-encoded data
func GetBindRequest(data []byte) (*BindRequest, error) {
	seq, err := BerGetSequence(data)
	if err != nil {
		return nil, err
	}
	if len(seq) != 3 {
		return nil, ErrWrongSequenceLength.WithInfo("LDAPBindRequest sequence length", len(seq))
	}
	if seq[0].Type != BerTypeInteger {
		return nil, ErrWrongElementType.WithInfo("LDAPBindRequest version type", seq[0].Type)
	}
	version, err := BerGetInteger(seq[0].Data)
	if err != nil {
		return nil, err
	}
	if version < 1 || version > 127 {
		return nil, ErrInvalidLDAPMessage
	}
	if seq[1].Type != BerTypeOctetString {
		return nil, ErrWrongElementType.WithInfo("LDAPBindRequest name type", seq[1].Type)
	}
	name := BerGetOctetString(seq[1].Data)
	if seq[2].Type.Class() != BerClassContextSpecific {
		return nil, ErrWrongElementType.WithInfo("LDAPBindRequest auth type", seq[2].Type)
	}
	authtype := AuthenticationType(seq[2].Type.TagNumber())
	var credentials any
	switch authtype {
	case AuthenticationTypeSimple:
		credentials = BerGetOctetString(seq[2].Data)
	case AuthenticationTypeSASL:
		s_seq, err := BerGetSequence(seq[2].Data)
		if err != nil {
			return nil, err
		}
		if len(s_seq) != 1 && len(s_seq) != 2 {
			return nil, ErrWrongSequenceLength.WithInfo("SASLCredentials sequence length", len(s_seq))
		}
		if s_seq[0].Type != BerTypeOctetString {
			return nil, ErrWrongElementType.WithInfo("SASLCredentials mechanism type", s_seq[0].Type)
		}
		saslCredentials := ""
		if len(s_seq) == 2 {
			if s_seq[1].Type != BerTypeOctetString {
				return nil, ErrWrongElementType.WithInfo("SASLCredentials credentials type", s_seq[1].Type)
			}
			saslCredentials = BerGetOctetString(s_seq[1].Data)
		}
		credentials = &SASLCredentials{
			Mechanism:   BerGetOctetString(s_seq[0].Data),
			Credentials: saslCredentials,
		}
	default:
		credentials = nil
	}
	req := &BindRequest{
		Version:     uint8(version),
		Name:        name,
		AuthType:    authtype,
		Credentials: credentials,
	}
	return req, nil
}

// Returns the BER-encoded struct (without element header)
func (r *BindResult) Encode() []byte {
	if r.ServerSASLCredentials == "" {
		return r.Result.Encode()
	}
	b := bytes.NewBuffer(r.Result.Encode())
	b.Write(BerEncodeElement(BerContextSpecificType(7, false), []byte(r.ServerSASLCredentials)))
	return b.Bytes()
}

// Returns the BER-encoded struct (without element header)
func (r *BindRequest) Encode() []byte {
	b := bytes.NewBuffer(nil)
	b.Write(BerEncodeInteger(int64(r.Version)))
	b.Write(BerEncodeOctetString(r.Name))
	switch r.AuthType {
	case AuthenticationTypeSimple:
		b.Write(BerEncodeElement(BerContextSpecificType(0, false), []byte(r.Credentials.(string))))
	case AuthenticationTypeSASL:
		creds := r.Credentials.(*SASLCredentials)
		sb := bytes.NewBuffer(nil)
		sb.Write(BerEncodeOctetString(creds.Mechanism))
		if creds.Credentials != "" {
			sb.Write(BerEncodeOctetString(creds.Credentials))
		}
		b.Write(BerEncodeElement(BerContextSpecificType(3, true), sb.Bytes()))
	}
	return b.Bytes()
}

// Return a BindResult from BER-encoded data
func GetBindResult(data []byte) (*BindResult, error) {
	seq, err := BerGetSequence(data)
	if err != nil {
		return nil, err
	}
	if len(seq) != 3 && len(seq) != 4 {
		return nil, ErrWrongSequenceLength.WithInfo("BindResult sequence length", len(seq))
	}
	nres := len(seq)
	if nres > 0 && seq[nres-1].Type == BerContextSpecificType(7, false) {
		nres--
	}
	resData := bytes.NewBuffer(nil)
	for _, e := range seq[:nres] {
		resData.Write(BerEncodeElement(e.Type, e.Data))
	}
	res, err := GetResult(resData.Bytes())
	if err != nil {
		return nil, err
	}
	br := &BindResult{Result: *res}
	if nres < len(seq) {
		br.ServerSASLCredentials = BerGetOctetString(seq[nres].Data)
	}
	return br, nil
}
