package ldapclient

import "bytes"

// LDAP result code
type LDAPResultCode uint32

// Defined result codes
const (
	ResultSuccess                  LDAPResultCode = 0
	LDAPResultOperationsError      LDAPResultCode = 1
	LDAPResultProtocolError        LDAPResultCode = 2
	LDAPResultTimeLimitExceeded    LDAPResultCode = 3
	LDAPResultSizeLimitExceeded    LDAPResultCode = 4
	LDAPResultCompareFalse         LDAPResultCode = 5
	LDAPResultCompareTrue          LDAPResultCode = 6
	ResultAuthMethodNotSupported   LDAPResultCode = 7
	LDAPResultStrongerAuthRequired LDAPResultCode = 8
	// 9 reserved
	LDAPResultReferral                     LDAPResultCode = 10
	LDAPResultAdminLimitExceeded           LDAPResultCode = 11
	LDAPResultUnavailableCriticalExtension LDAPResultCode = 12
	LDAPResultConfidentialityRequired      LDAPResultCode = 13
	LDAPResultSaslBindInProgress           LDAPResultCode = 14
	// 15 ???
	LDAPResultNoSuchAttribute        LDAPResultCode = 16
	LDAPResultUndefinedAttributeType LDAPResultCode = 17
	LDAPResultInappropriateMatching  LDAPResultCode = 18
	LDAPResultConstraintViolation    LDAPResultCode = 19
	LDAPResultAttributeOrValueExists LDAPResultCode = 20
	LDAPResultInvalidAttributeSyntax LDAPResultCode = 21
	// 22-31 unused
	LDAPResultNoSuchObject    LDAPResultCode = 32
	LDAPResultAliasProblem    LDAPResultCode = 33
	LDAPResultInvalidDNSyntax LDAPResultCode = 34
	// 35 reserved
	LDAPResultAliasDereferencingProblem LDAPResultCode = 36
	// 37-47 unused
	LDAPResultInappropriateAuthentication LDAPResultCode = 48
	LDAPResultInvalidCredentials          LDAPResultCode = 49
	LDAPResultInsufficientAccessRights    LDAPResultCode = 50
	LDAPResultBusy                        LDAPResultCode = 51
	LDAPResultUnavailable                 LDAPResultCode = 52
	LDAPResultUnwillingToPerform          LDAPResultCode = 53
	LDAPResultLoopDetect                  LDAPResultCode = 54
	// 55-63 unused
	LDAPResultNamingViolation           LDAPResultCode = 64
	LDAPResultObjectClassViolation      LDAPResultCode = 65
	LDAPResultNotAllowedOnNonLeaf       LDAPResultCode = 66
	LDAPResultNotAllowedOnRDN           LDAPResultCode = 67
	LDAPResultEntryAlreadyExists        LDAPResultCode = 68
	LDAPResultObjectClassModsProhibited LDAPResultCode = 69
	// 70 reserved
	LDAPResultAffectsMultibleDSAs LDAPResultCode = 71
	// 72-79 unused
	LDAPResultOther LDAPResultCode = 80
	// extensible, more codes possible

	// Local result codes, never sent on the wire. A bound-checked client
	// surfaces these through the same LDAPResult shape used for server
	// responses so callers have one type to switch on regardless of
	// whether the failure happened locally or came back from the DSA.
	ResultLocalError            LDAPResultCode = 0x10000
	ResultTimeout               LDAPResultCode = 0x10001
	ResultConnectError          LDAPResultCode = 0x10002
	ResultServerDown            LDAPResultCode = 0x10003
	ResultReferralLimitExceeded LDAPResultCode = 0x10004
	ResultCanceled              LDAPResultCode = 0x10005
)

//	LDAPResult ::= SEQUENCE {
//			resultCode         ENUMERATED {
//	         -- Defined result codes --
//				...  },
//	     matchedDN          LDAPDN,
//	     diagnosticMessage  LDAPString,
//	     referral           [3] Referral OPTIONAL }
type Result struct {
	ResultCode        LDAPResultCode
	MatchedDN         string
	DiagnosticMessage string
	Referral          []string
}

//	IntermediateResponse ::= [APPLICATION 25] SEQUENCE {
//	     responseName     [0] LDAPOID OPTIONAL,
//	     responseValue    [1] OCTET STRING OPTIONAL }
type IntermediateResponse struct {
	Name  string
	Value string
}

// Return a Result from BER-encoded data
func GetResult(data []byte) (*Result, error) {
	seq, err := BerGetSequence(data)
	if err != nil {
		return nil, err
	}
	if len(seq) != 3 && len(seq) != 4 {
		return nil, ErrWrongSequenceLength.WithInfo("LDAPResult sequence length", len(seq))
	}
	if seq[0].Type != BerTypeEnumerated {
		return nil, ErrWrongElementType.WithInfo("LDAPResult result code type", seq[0].Type)
	}
	resultCode, err := BerGetInteger(seq[0].Data)
	if err != nil {
		return nil, err
	}
	if seq[1].Type != BerTypeOctetString {
		return nil, ErrWrongElementType.WithInfo("LDAPResult matched DN type", seq[1].Type)
	}
	matchedDN := BerGetOctetString(seq[1].Data)
	if seq[2].Type != BerTypeOctetString {
		return nil, ErrWrongElementType.WithInfo("LDAPResult diagnostic message type", seq[2].Type)
	}
	diagnosticMsg := BerGetOctetString(seq[2].Data)
	var referral []string
	if len(seq) == 4 {
		if seq[3].Type.Class() != BerClassContextSpecific ||
			seq[3].Type.TagNumber() != 3 {
			return nil, ErrWrongElementType.WithInfo("LDAPResult referral type", seq[3].Type)
		}
		r_seq, err := BerGetSequence(seq[3].Data)
		if err != nil {
			return nil, err
		}
		for _, rr := range r_seq {
			referral = append(referral, BerGetOctetString(rr.Data))
		}
	}
	res := &Result{
		ResultCode:        LDAPResultCode(resultCode),
		MatchedDN:         matchedDN,
		DiagnosticMessage: diagnosticMsg,
		Referral:          referral,
	}
	return res, nil
}

// Return the BER-encoded struct (without element header)
func (r *Result) Encode() []byte {
	w := bytes.NewBuffer(nil)
	w.Write(BerEncodeEnumerated(int64(r.ResultCode)))
	w.Write(BerEncodeOctetString(r.MatchedDN))
	w.Write(BerEncodeOctetString(r.DiagnosticMessage))
	if len(r.Referral) > 0 {
		referrals := bytes.NewBuffer(nil)
		for _, ref := range r.Referral {
			referrals.Write(BerEncodeOctetString(ref))
		}
		w.Write(BerEncodeElement(BerContextSpecificType(3, true), referrals.Bytes()))
	}
	return w.Bytes()
}

// Return the BER-encoded struct (without element header)
func (r *IntermediateResponse) Encode() []byte {
	w := bytes.NewBuffer(nil)
	if r.Name != "" {
		w.Write(BerEncodeElement(BerContextSpecificType(0, false), []byte(r.Name)))
	}
	if r.Value != "" {
		w.Write(BerEncodeElement(BerContextSpecificType(1, false), []byte(r.Value)))
	}
	return w.Bytes()
}

// Error implements the error interface so an unsuccessful Result can be
// returned directly from a request method without wrapping.
func (r *Result) Error() string {
	if r.DiagnosticMessage == "" {
		return r.ResultCode.String()
	}
	return r.ResultCode.String() + ": " + r.DiagnosticMessage
}

// Ok reports whether the result code indicates success. compare operations
// treat LDAPResultCompareTrue/LDAPResultCompareFalse as non-error outcomes
// of their own, so they are not covered by this helper.
func (r *Result) Ok() bool {
	return r.ResultCode == ResultSuccess
}

func (c LDAPResultCode) String() string {
	switch c {
	case ResultSuccess:
		return "success"
	case LDAPResultOperationsError:
		return "operations error"
	case LDAPResultProtocolError:
		return "protocol error"
	case LDAPResultTimeLimitExceeded:
		return "time limit exceeded"
	case LDAPResultSizeLimitExceeded:
		return "size limit exceeded"
	case LDAPResultCompareFalse:
		return "compare false"
	case LDAPResultCompareTrue:
		return "compare true"
	case ResultAuthMethodNotSupported:
		return "auth method not supported"
	case LDAPResultStrongerAuthRequired:
		return "stronger auth required"
	case LDAPResultReferral:
		return "referral"
	case LDAPResultAdminLimitExceeded:
		return "admin limit exceeded"
	case LDAPResultUnavailableCriticalExtension:
		return "unavailable critical extension"
	case LDAPResultConfidentialityRequired:
		return "confidentiality required"
	case LDAPResultSaslBindInProgress:
		return "SASL bind in progress"
	case LDAPResultNoSuchAttribute:
		return "no such attribute"
	case LDAPResultUndefinedAttributeType:
		return "undefined attribute type"
	case LDAPResultInappropriateMatching:
		return "inappropriate matching"
	case LDAPResultConstraintViolation:
		return "constraint violation"
	case LDAPResultAttributeOrValueExists:
		return "attribute or value exists"
	case LDAPResultInvalidAttributeSyntax:
		return "invalid attribute syntax"
	case LDAPResultNoSuchObject:
		return "no such object"
	case LDAPResultAliasProblem:
		return "alias problem"
	case LDAPResultInvalidDNSyntax:
		return "invalid DN syntax"
	case LDAPResultAliasDereferencingProblem:
		return "alias dereferencing problem"
	case LDAPResultInappropriateAuthentication:
		return "inappropriate authentication"
	case LDAPResultInvalidCredentials:
		return "invalid credentials"
	case LDAPResultInsufficientAccessRights:
		return "insufficient access rights"
	case LDAPResultBusy:
		return "busy"
	case LDAPResultUnavailable:
		return "unavailable"
	case LDAPResultUnwillingToPerform:
		return "unwilling to perform"
	case LDAPResultLoopDetect:
		return "loop detect"
	case LDAPResultNamingViolation:
		return "naming violation"
	case LDAPResultObjectClassViolation:
		return "object class violation"
	case LDAPResultNotAllowedOnNonLeaf:
		return "not allowed on non-leaf"
	case LDAPResultNotAllowedOnRDN:
		return "not allowed on RDN"
	case LDAPResultEntryAlreadyExists:
		return "entry already exists"
	case LDAPResultObjectClassModsProhibited:
		return "object class mods prohibited"
	case LDAPResultAffectsMultibleDSAs:
		return "affects multiple DSAs"
	case LDAPResultOther:
		return "other"
	case ResultLocalError:
		return "local error"
	case ResultTimeout:
		return "timeout"
	case ResultConnectError:
		return "connect error"
	case ResultServerDown:
		return "server down"
	case ResultReferralLimitExceeded:
		return "referral limit exceeded"
	case ResultCanceled:
		return "canceled"
	default:
		return "unknown result code"
	}
}

// Return an IntermediateResponse from BER-encoded data
func GetIntermediateResponse(data []byte) (*IntermediateResponse, error) {
	seq, err := BerGetSequence(data)
	if err != nil {
		return nil, err
	}
	ir := &IntermediateResponse{}
	for _, e := range seq {
		if e.Type.Class() != BerClassContextSpecific {
			return nil, ErrWrongElementType.WithInfo("IntermediateResponse type", e.Type)
		}
		switch e.Type.TagNumber() {
		case 0:
			ir.Name = BerGetOctetString(e.Data)
		case 1:
			ir.Value = BerGetOctetString(e.Data)
		default:
			return nil, ErrWrongElementType.WithInfo("IntermediateResponse type", e.Type)
		}
	}
	return ir, nil
}

func (r LDAPResultCode) AsResult(diagnosticMessage string) *Result {
	res := &Result{
		ResultCode:        r,
		DiagnosticMessage: diagnosticMessage,
	}
	return res
}

// Result returned for protocol errors
var ProtocolError = &Result{
	ResultCode:        LDAPResultProtocolError,
	DiagnosticMessage: "the server could not understand the request",
}

// Result returned for unsupported requests
var UnsupportedOperation = &Result{
	ResultCode:        LDAPResultUnwillingToPerform,
	DiagnosticMessage: "the operation requested is not supported by the server",
}

// Result returned for denied permission
var PermissionDenied = &Result{
	ResultCode:        LDAPResultInsufficientAccessRights,
	DiagnosticMessage: "client has insufficient access rights to the requested resource",
}
