package ldapclient

import (
	"net/url"
	"strconv"
	"strings"
)

// URL represents an LDAP URL as defined by RFC 4516:
//
//	ldapurl = scheme "://" [host [":" port]] ["/"
//	           dn ["?" [attributes] ["?" [scope] ["?" [filter] ["?" extensions]]]]]
type URL struct {
	Scheme     string
	Host       string
	Port       int
	DN         string
	Attributes []string
	Scope      SearchScope
	Filter     string
	Extensions []string
}

// ParseURL parses an LDAP URL, percent-decoding each segment. Scope and
// filter default to base-object and "(objectClass=*)" when their segments
// are empty, per RFC 4516 §2.
func ParseURL(s string) (*URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, ErrInvalidURL.WithInfo("error", err)
	}
	if u.Scheme != "ldap" && u.Scheme != "ldaps" {
		return nil, ErrInvalidURL.WithInfo("scheme", u.Scheme)
	}
	parsed := &URL{
		Scheme: u.Scheme,
		Host:   u.Hostname(),
		Scope:  SearchScopeBaseObject,
		Filter: "(objectClass=*)",
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, ErrInvalidURL.WithInfo("port", p)
		}
		parsed.Port = port
	} else if u.Scheme == "ldaps" {
		parsed.Port = 636
	} else {
		parsed.Port = 389
	}
	parsed.DN = strings.TrimPrefix(u.Path, "/")

	if u.RawQuery == "" {
		return parsed, nil
	}
	// RFC 4516 query segments are '?'-separated, not '&'-separated like an
	// ordinary URL query string, so url.Parse's RawQuery is split by hand.
	segments := strings.SplitN(u.RawQuery, "?", 4)
	if len(segments) > 0 && segments[0] != "" {
		for _, a := range strings.Split(segments[0], ",") {
			a, err := url.QueryUnescape(a)
			if err != nil {
				return nil, ErrInvalidURL.WithInfo("attribute", a)
			}
			if a != "" {
				parsed.Attributes = append(parsed.Attributes, a)
			}
		}
	}
	if len(segments) > 1 && segments[1] != "" {
		scope, err := url.QueryUnescape(segments[1])
		if err != nil {
			return nil, ErrInvalidURL.WithInfo("scope", segments[1])
		}
		switch scope {
		case "base":
			parsed.Scope = SearchScopeBaseObject
		case "one":
			parsed.Scope = SearchScopeSingleLevel
		case "sub":
			parsed.Scope = SearchScopeWholeSubtree
		default:
			return nil, ErrInvalidURL.WithInfo("scope", scope)
		}
	}
	if len(segments) > 2 && segments[2] != "" {
		filter, err := url.QueryUnescape(segments[2])
		if err != nil {
			return nil, ErrInvalidURL.WithInfo("filter", segments[2])
		}
		parsed.Filter = filter
	}
	if len(segments) > 3 && segments[3] != "" {
		for _, e := range strings.Split(segments[3], ",") {
			e, err := url.QueryUnescape(e)
			if err != nil {
				return nil, ErrInvalidURL.WithInfo("extension", e)
			}
			if e != "" {
				parsed.Extensions = append(parsed.Extensions, e)
			}
		}
	}
	return parsed, nil
}

// String renders the URL back to RFC 4516 text form.
func (u *URL) String() string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	defaultPort := 389
	if u.Scheme == "ldaps" {
		defaultPort = 636
	}
	if u.Port != 0 && u.Port != defaultPort {
		b.WriteString(":")
		b.WriteString(strconv.Itoa(u.Port))
	}
	b.WriteString("/")
	b.WriteString(url.QueryEscape(u.DN))

	scope := ""
	switch u.Scope {
	case SearchScopeSingleLevel:
		scope = "one"
	case SearchScopeWholeSubtree:
		scope = "sub"
	}
	needsQuery := len(u.Attributes) > 0 || scope != "" ||
		(u.Filter != "" && u.Filter != "(objectClass=*)") || len(u.Extensions) > 0
	if !needsQuery {
		return b.String()
	}
	b.WriteString("?")
	attrs := make([]string, len(u.Attributes))
	for i, a := range u.Attributes {
		attrs[i] = url.QueryEscape(a)
	}
	b.WriteString(strings.Join(attrs, ","))
	b.WriteString("?")
	b.WriteString(scope)
	b.WriteString("?")
	if u.Filter != "" {
		b.WriteString(url.QueryEscape(u.Filter))
	}
	if len(u.Extensions) > 0 {
		b.WriteString("?")
		exts := make([]string, len(u.Extensions))
		for i, e := range u.Extensions {
			exts[i] = url.QueryEscape(e)
		}
		b.WriteString(strings.Join(exts, ","))
	}
	return b.String()
}
