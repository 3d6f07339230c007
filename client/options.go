package client

import "time"

// Option configures a Conn at Dial time.
type Option func(*config)

// RequestOption configures a single request issued through Send/Bind/etc.
type RequestOption func(*requestConfig)

type config struct {
	connectTimeout         time.Duration
	responseTimeout        time.Duration
	followReferrals        bool
	referralHopLimit       int
	bindDNRequiresPassword bool
	synchronous            bool
	maxMessageSize         uint32
	abandonOnTimeout       bool
	schemaAwareResults     bool
	lenientTextualValues   bool
	referralConnector      ReferralConnector
}

func defaultConfig() *config {
	return &config{
		connectTimeout:   30 * time.Second,
		followReferrals:  false,
		referralHopLimit: 5,
		maxMessageSize:   20 * 1024 * 1024,
		abandonOnTimeout: true,
	}
}

// WithConnectTimeout bounds how long Dial waits for the TCP handshake.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *config) { c.connectTimeout = d }
}

// WithResponseTimeout sets the default per-request timeout used when a
// request does not supply its own WithTimeout.
func WithResponseTimeout(d time.Duration) Option {
	return func(c *config) { c.responseTimeout = d }
}

// WithFollowReferrals enables automatic referral chasing using the
// connector supplied by WithReferralConnector (or DefaultReferralConnector
// if none is set).
func WithFollowReferrals(follow bool) Option {
	return func(c *config) { c.followReferrals = follow }
}

// WithReferralHopLimit bounds how many referral hops a search follows for a
// single original request; once the bound is passed, the last referral
// result is returned as is. A non-search request follows one hop only:
// whatever the referred server answers, including another referral, is
// returned. ResultReferralLimitExceeded is not returned to the caller.
func WithReferralHopLimit(n int) Option {
	return func(c *config) { c.referralHopLimit = n }
}

// WithReferralConnector supplies the dialer used to follow referral URLs.
func WithReferralConnector(rc ReferralConnector) Option {
	return func(c *config) { c.referralConnector = rc }
}

// WithBindDNRequiresPassword rejects a simple Bind carrying a non-empty
// name and an empty password locally, before it reaches the wire, guarding
// against the classic "unauthenticated bind" mistake when that is never
// the caller's intent.
func WithBindDNRequiresPassword(require bool) Option {
	return func(c *config) { c.bindDNRequiresPassword = require }
}

// WithSynchronousMode disables the reader goroutine: Send/Bind write then
// block reading the response directly on the calling goroutine, bounding
// the read with WithTimeout/WithResponseTimeout via the socket's read
// deadline instead of a channel select. A SearchRequest still spawns one
// goroutine scoped to that single search, since its entries/references
// must be produced while the caller drains them; no such goroutine
// survives the search. Incompatible with concurrent outstanding requests
// on the same Conn, since nothing demultiplexes by message ID.
func WithSynchronousMode(sync bool) Option {
	return func(c *config) { c.synchronous = sync }
}

// WithMaxMessageSize bounds the length any single incoming BER element may
// declare; exceeding it fails the read with ErrIntegerTooLarge instead of
// allocating an attacker-controlled buffer. Default 20 MiB.
func WithMaxMessageSize(n uint32) Option {
	return func(c *config) { c.maxMessageSize = n }
}

// WithAbandonOnTimeout controls whether a locally-timed-out request also
// sends an AbandonRequest for the message ID it gave up on. Default true.
func WithAbandonOnTimeout(abandon bool) Option {
	return func(c *config) { c.abandonOnTimeout = abandon }
}

// WithSchemaAwareResults stores a flag in the Conn's configuration. Nothing
// in this package reads it, and no schema engine ships in this core.
func WithSchemaAwareResults(aware bool) Option {
	return func(c *config) { c.schemaAwareResults = aware }
}

// WithLenientTextualValues controls whether a trailing NUL byte in a
// search result entry's object name or an LDIF-carried attribute value
// is tolerated (true, for the handful of servers known to emit it) or
// rejected with ldapclient.ErrTrailingNUL (false, the default).
func WithLenientTextualValues(lenient bool) Option {
	return func(c *config) { c.lenientTextualValues = lenient }
}

type requestConfig struct {
	timeout time.Duration
}

// WithTimeout bounds how long a single request waits for its terminal
// response before it is abandoned locally and ResultTimeout is returned.
func WithTimeout(d time.Duration) RequestOption {
	return func(rc *requestConfig) { rc.timeout = d }
}
