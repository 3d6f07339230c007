package client

import "github.com/dirsync/ldapclient"

// acceptor receives messages demultiplexed by message ID from the reader
// goroutine. deliver reports whether the acceptor is now finished and
// should be deregistered.
type acceptor interface {
	deliver(msg *ldapclient.Message) (done bool)
	fail(result *LDAPResult)
}

// singleAcceptor resolves exactly one terminal response: bind, add,
// delete, modify, modifyDN, compare, extended (non-search) requests.
type singleAcceptor struct {
	resultCh chan *LDAPResult
	// raw carries the undecoded terminal message alongside its parsed
	// LDAPResult so callers needing response-specific fields (e.g.
	// BindResult.ServerSASLCredentials) can decode it themselves.
	rawCh chan *ldapclient.Message
}

func newSingleAcceptor() *singleAcceptor {
	return &singleAcceptor{
		resultCh: make(chan *LDAPResult, 1),
		rawCh:    make(chan *ldapclient.Message, 1),
	}
}

func (a *singleAcceptor) deliver(msg *ldapclient.Message) bool {
	a.rawCh <- msg
	return true
}

func (a *singleAcceptor) fail(result *LDAPResult) {
	a.resultCh <- result
	close(a.resultCh)
}

// SearchHandle is returned by Send for a SearchRequest. Entries and
// References stay open until Done resolves; callers should drain both (or
// call Abandon) to avoid leaking the goroutine delivering them.
type SearchHandle struct {
	entries    chan *ldapclient.SearchResultEntry
	references chan ldapclient.SearchResultReference
	done       chan *LDAPResult
}

func (h *SearchHandle) Entries() <-chan *ldapclient.SearchResultEntry {
	return h.entries
}

func (h *SearchHandle) References() <-chan ldapclient.SearchResultReference {
	return h.references
}

// Done blocks until the search completes (SearchResultDone received, the
// connection failed, or the request was abandoned) and returns the
// terminal result.
func (h *SearchHandle) Done() *LDAPResult {
	return <-h.done
}

type searchAcceptor struct {
	handle  *SearchHandle
	lenient bool
}

func newSearchAcceptor(lenient bool) *searchAcceptor {
	return &searchAcceptor{
		lenient: lenient,
		handle: &SearchHandle{
			entries:    make(chan *ldapclient.SearchResultEntry, 16),
			references: make(chan ldapclient.SearchResultReference, 4),
			done:       make(chan *LDAPResult, 1),
		},
	}
}

// rejectTrailingNUL reports whether entry's object name or any attribute
// value carries a trailing NUL byte that strict mode must reject.
func rejectTrailingNUL(entry *ldapclient.SearchResultEntry) bool {
	hasNUL := func(s string) bool { return len(s) > 0 && s[len(s)-1] == 0 }
	if hasNUL(entry.ObjectName) {
		return true
	}
	for _, attr := range entry.Attributes {
		for _, v := range attr.Values {
			if hasNUL(v) {
				return true
			}
		}
	}
	return false
}

func (a *searchAcceptor) deliver(msg *ldapclient.Message) bool {
	switch msg.ProtocolOp.Type {
	case ldapclient.TypeSearchResultEntryOp:
		entry, err := ldapclient.GetSearchResultEntry(msg.ProtocolOp.Data)
		if err != nil {
			return false
		}
		if !a.lenient && rejectTrailingNUL(entry) {
			close(a.handle.entries)
			close(a.handle.references)
			a.handle.done <- localResult(ldapclient.ResultLocalError, ldapclient.ErrTrailingNUL.Error())
			close(a.handle.done)
			return true
		}
		a.handle.entries <- entry
		return false
	case ldapclient.TypeSearchResultReferenceOp:
		ref, err := ldapclient.GetSearchResultReference(msg.ProtocolOp.Data)
		if err != nil {
			return false
		}
		a.handle.references <- ref
		return false
	case ldapclient.TypeSearchResultDoneOp:
		res, err := ldapclient.GetResult(msg.ProtocolOp.Data)
		close(a.handle.entries)
		close(a.handle.references)
		if err != nil {
			a.handle.done <- localResult(ldapclient.ResultLocalError, err.Error())
		} else {
			a.handle.done <- fromWireResult(msg.MessageID, res, msg.Controls)
		}
		close(a.handle.done)
		return true
	default:
		return false
	}
}

func (a *searchAcceptor) fail(result *LDAPResult) {
	close(a.handle.entries)
	close(a.handle.references)
	a.handle.done <- result
	close(a.handle.done)
}
