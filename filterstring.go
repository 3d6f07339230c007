package ldapclient

import "strings"

// ParseFilterString parses an RFC 4515 textual filter, e.g.
// "(&(objectClass=person)(cn=Bob*))", into a Filter tree. Escapes of the
// form "\XX" (two hex digits) are unescaped the same way
// DecodeRDNAttributeValue unescapes RDN value text.
func ParseFilterString(s string) (*Filter, error) {
	p := &filterParser{s: s}
	f, err := p.parseFilter()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.s) {
		return nil, ErrInvalidLDAPMessage.WithInfo("trailing filter text", p.s[p.pos:])
	}
	return f, nil
}

type filterParser struct {
	s   string
	pos int
}

func (p *filterParser) parseFilter() (*Filter, error) {
	if p.pos >= len(p.s) || p.s[p.pos] != '(' {
		return nil, ErrInvalidLDAPMessage.WithInfo("expected '('", p.remaining())
	}
	p.pos++
	var f *Filter
	var err error
	switch {
	case p.pos < len(p.s) && p.s[p.pos] == '&':
		p.pos++
		f, err = p.parseFilterSet(FilterTypeAnd)
	case p.pos < len(p.s) && p.s[p.pos] == '|':
		p.pos++
		f, err = p.parseFilterSet(FilterTypeOr)
	case p.pos < len(p.s) && p.s[p.pos] == '!':
		p.pos++
		inner, ierr := p.parseFilter()
		if ierr != nil {
			return nil, ierr
		}
		f, err = &Filter{Type: FilterTypeNot, Data: inner}, nil
	default:
		f, err = p.parseItem()
	}
	if err != nil {
		return nil, err
	}
	if p.pos >= len(p.s) || p.s[p.pos] != ')' {
		return nil, ErrInvalidLDAPMessage.WithInfo("expected ')'", p.remaining())
	}
	p.pos++
	return f, nil
}

func (p *filterParser) parseFilterSet(t uint8) (*Filter, error) {
	var filters []Filter
	for p.pos < len(p.s) && p.s[p.pos] == '(' {
		sub, err := p.parseFilter()
		if err != nil {
			return nil, err
		}
		filters = append(filters, *sub)
	}
	return &Filter{Type: t, Data: filters}, nil
}

func (p *filterParser) remaining() string {
	if p.pos >= len(p.s) {
		return ""
	}
	return p.s[p.pos:]
}

// parseItem parses one "attr op value" item, attr=value, attr~=value,
// attr>=value, attr<=value, attr=value*value*..., attr=*, or an
// extensible match attr[:dn][:rule]:=value / :rule:=value.
func (p *filterParser) parseItem() (*Filter, error) {
	end := strings.IndexAny(p.s[p.pos:], "=~<>)")
	if end < 0 {
		return nil, ErrInvalidLDAPMessage.WithInfo("malformed filter item", p.remaining())
	}
	end += p.pos
	opStart := end
	var opLen int
	switch p.s[end] {
	case '=':
		opLen = 1
	case '~', '<', '>':
		if end+1 >= len(p.s) || p.s[end+1] != '=' {
			return nil, ErrInvalidLDAPMessage.WithInfo("malformed filter operator", p.remaining())
		}
		opLen = 2
	default:
		return nil, ErrInvalidLDAPMessage.WithInfo("malformed filter item", p.remaining())
	}
	attrPart := p.s[p.pos:opStart]
	valueStart := opStart + opLen
	valueEnd := strings.IndexByte(p.s[valueStart:], ')')
	if valueEnd < 0 {
		return nil, ErrInvalidLDAPMessage.WithInfo("unterminated filter value", p.remaining())
	}
	valueEnd += valueStart
	value := p.s[valueStart:valueEnd]
	p.pos = valueEnd

	attr, extRule, dnAttrs, isExtensible := splitExtensibleAttr(attrPart)
	op := p.s[opStart : opStart+opLen]

	if isExtensible {
		unescaped, err := DecodeRDNAttributeValue(value)
		if err != nil {
			return nil, err
		}
		return &Filter{Type: FilterTypeExtensibleMatch, Data: &MatchingRuleAssertion{
			MatchingRule: extRule,
			Type:         attr,
			MatchValue:   unescaped,
			DNAttributes: dnAttrs,
		}}, nil
	}

	switch op {
	case "~=":
		v, err := DecodeRDNAttributeValue(value)
		if err != nil {
			return nil, err
		}
		return &Filter{Type: FilterTypeApproxMatch, Data: &AttributeValueAssertion{Description: attr, Value: v}}, nil
	case ">=":
		v, err := DecodeRDNAttributeValue(value)
		if err != nil {
			return nil, err
		}
		return &Filter{Type: FilterTypeGreaterOrEqual, Data: &AttributeValueAssertion{Description: attr, Value: v}}, nil
	case "<=":
		v, err := DecodeRDNAttributeValue(value)
		if err != nil {
			return nil, err
		}
		return &Filter{Type: FilterTypeLessOrEqual, Data: &AttributeValueAssertion{Description: attr, Value: v}}, nil
	}

	if value == "*" {
		return &Filter{Type: FilterTypePresent, Data: attr}, nil
	}
	if strings.Contains(value, "*") {
		parts := strings.Split(value, "*")
		sf := &SubstringFilter{Type: attr}
		for i, part := range parts {
			v, err := DecodeRDNAttributeValue(part)
			if err != nil {
				return nil, err
			}
			switch {
			case i == 0:
				if v != "" {
					sf.Initial = v
				}
			case i == len(parts)-1:
				if v != "" {
					sf.Final = v
				}
			default:
				sf.Any = append(sf.Any, v)
			}
		}
		return &Filter{Type: FilterTypeSubstrings, Data: sf}, nil
	}
	v, err := DecodeRDNAttributeValue(value)
	if err != nil {
		return nil, err
	}
	return &Filter{Type: FilterTypeEqual, Data: &AttributeValueAssertion{Description: attr, Value: v}}, nil
}

// splitExtensibleAttr splits "attr", "attr:dn:rule", "attr:rule", or
// ":dn:rule" / ":rule" (rule-only match, no attribute) into its parts.
func splitExtensibleAttr(s string) (attr, rule string, dnAttrs, isExtensible bool) {
	if !strings.Contains(s, ":") {
		return s, "", false, false
	}
	parts := strings.Split(s, ":")
	attr = parts[0]
	for _, part := range parts[1:] {
		if part == "dn" {
			dnAttrs = true
		} else if part != "" {
			rule = part
		}
	}
	return attr, rule, dnAttrs, true
}
