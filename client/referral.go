package client

import (
	"context"
	"strconv"

	"github.com/dirsync/ldapclient"
)

// ReferralConnector dials the server named by a referral URL. Implementations
// typically call Dial or DialTLS depending on u.Scheme.
type ReferralConnector interface {
	Connect(ctx context.Context, u ldapclient.URL) (*Conn, error)
}

// DefaultReferralConnector dials referral URLs with the plain Dial/DialTLS
// functions using opts for every hop.
type DefaultReferralConnector struct {
	Opts []Option
}

func (d DefaultReferralConnector) Connect(ctx context.Context, u ldapclient.URL) (*Conn, error) {
	addr := u.Host
	if u.Port != 0 {
		addr = u.Host + ":" + strconv.Itoa(u.Port)
	}
	if u.Scheme == "ldaps" {
		return DialTLS("tcp", addr, nil, d.Opts...)
	}
	return Dial("tcp", addr, d.Opts...)
}

func (c *Conn) connector() ReferralConnector {
	if c.cfg.referralConnector != nil {
		return c.cfg.referralConnector
	}
	return DefaultReferralConnector{}
}

// chaseReferral follows one result's referral URLs, substituting the
// referral URL's DN/attributes/filter into a copy of the original SearchRequest
// when req is one (per RFC 4511 §4.1.10, a referral URL may narrow the
// continuation search), and resends. Returns the first successful
// connection's response, or the original result unchanged if every URL
// fails or referral chasing is not requested.
func (c *Conn) chaseReferral(result *LDAPResult, req any, hop int, opts ...RequestOption) (any, *Conn, error) {
	if !c.cfg.followReferrals || result.ResultCode != ldapclient.LDAPResultReferral {
		return result, nil, nil
	}
	if hop > c.cfg.referralHopLimit {
		return localResult(ldapclient.ResultReferralLimitExceeded, "referral hop limit exceeded"), nil, nil
	}
	connector := c.connector()
	for _, raw := range result.Referral {
		u, err := ldapclient.ParseURL(raw)
		if err != nil {
			continue
		}
		rc, err := connector.Connect(context.Background(), *u)
		if err != nil {
			continue
		}
		resolved := resolveReferralRequest(req, u)
		resp, err := rc.Send(resolved.(encodable), opts...)
		if err != nil {
			rc.Close()
			continue
		}
		return resp, rc, nil
	}
	return result, nil, nil
}

// chaseSearchReferral wraps handle so that, if its terminal result is a
// referral, the referral is transparently chased and its entries/
// references are forwarded through the same SearchHandle the caller
// already holds. The original handle's channels are never returned
// directly to the caller in this mode; a proxy with its own channels is.
func (c *Conn) chaseSearchReferral(handle *SearchHandle, req any, opts ...RequestOption) *SearchHandle {
	out := &SearchHandle{
		entries:    make(chan *ldapclient.SearchResultEntry, 16),
		references: make(chan ldapclient.SearchResultReference, 4),
		done:       make(chan *LDAPResult, 1),
	}
	go func() {
		defer close(out.done)
		defer close(out.references)
		defer close(out.entries)
		cur := handle
		var ownedConn *Conn
		defer func() {
			if ownedConn != nil {
				ownedConn.Close()
			}
		}()
		for hop := 1; ; hop++ {
			drained := false
			var result *LDAPResult
			for !drained {
				select {
				case e, ok := <-cur.entries:
					if !ok {
						cur.entries = nil
						continue
					}
					out.entries <- e
				case r, ok := <-cur.references:
					if !ok {
						cur.references = nil
						continue
					}
					out.references <- r
				case result = <-cur.done:
					drained = true
				}
			}
			if result.ResultCode != ldapclient.LDAPResultReferral || hop > c.cfg.referralHopLimit {
				out.done <- result
				return
			}
			chased, nextConn, err := c.chaseReferral(result, req, hop, opts...)
			if err != nil || nextConn == nil {
				out.done <- result
				return
			}
			next, ok := chased.(*SearchHandle)
			if !ok {
				out.done <- result
				return
			}
			if ownedConn != nil {
				ownedConn.Close()
			}
			ownedConn = nextConn
			cur = next
		}
	}()
	return out
}

// resolveReferralRequest substitutes the referral URL's DN, attribute list
// and filter into a shallow copy of req when req is a SearchRequest and the
// URL supplies them; the scope is kept from req. Every other request type
// is returned unchanged (its
// Object/Entry DN is not redirected by the continuation reference).
func resolveReferralRequest(req any, u *ldapclient.URL) any {
	sr, ok := req.(*ldapclient.SearchRequest)
	if !ok {
		return req
	}
	clone := *sr
	if u.DN != "" {
		clone.BaseObject = u.DN
	}
	if len(u.Attributes) > 0 {
		clone.Attributes = u.Attributes
	}
	if u.Filter != "" && u.Filter != "(objectClass=*)" {
		if f, err := ldapclient.ParseFilterString(u.Filter); err == nil {
			clone.Filter = f
		}
	}
	return &clone
}
