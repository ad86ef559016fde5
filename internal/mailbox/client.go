package mailbox

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// ErrStopFetch can be returned from a fetch callback to stop delivering
// messages early. The remaining responses are drained and the fetch itself
// reports success.
var ErrStopFetch = errors.New("stop fetch")

const fetchBatchSize = 50

// session is the slice of the IMAP client the rest of the package uses.
// *client.Client satisfies it; tests substitute a fake.
type session interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Mailbox() *imap.MailboxStatus
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	List(ref, name string, ch chan *imap.MailboxInfo) error
	Logout() error
}

// Client wraps an authenticated IMAP connection. It is scoped to a single
// extraction or match invocation: connect at entry, Close on every exit path.
type Client struct {
	conn  session
	owner string
	sent  string
}

// Connect dials the IMAP server over TLS and logs in.
func Connect(server string, port int, email, password string) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", server, port)

	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, wrapKind("connect "+addr, err, KindConnection)
	}

	if err := c.Login(email, password); err != nil {
		c.Logout()
		return nil, wrapKind("login "+email, err, KindAuthentication)
	}

	return &Client{conn: c, owner: email}, nil
}

// Owner returns the mailbox owner's address.
func (c *Client) Owner() string { return c.owner }

// Close logs out of the server.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Logout()
}

// SelectFolder makes the named folder the active one.
func (c *Client) SelectFolder(name string) error {
	if _, err := c.conn.Select(name, false); err != nil {
		return wrapKind("select "+name, err, KindFolderAccess)
	}
	return nil
}

// CurrentFolder reports the active folder, or "" when none is selected.
func (c *Client) CurrentFolder() string {
	mbox := c.conn.Mailbox()
	if mbox == nil {
		return ""
	}
	return mbox.Name
}

// WithFolder runs fn with the named folder selected, then restores the
// previously active folder. Restoration happens whether fn succeeds or
// fails; a failed restore is logged but does not mask fn's result.
func (c *Client) WithFolder(name string, fn func() error) error {
	prev := c.CurrentFolder()

	if err := c.SelectFolder(name); err != nil {
		return err
	}
	defer func() {
		if prev == "" || prev == name {
			return
		}
		if _, err := c.conn.Select(prev, false); err != nil {
			log.Printf("Warning: failed to restore folder %s: %v", prev, err)
		}
	}()

	return fn()
}

// FindSentFolder locates the Gmail sent-mail folder, preferring the long
// form. The result is cached for the connection's lifetime.
func (c *Client) FindSentFolder() (string, error) {
	if c.sent != "" {
		return c.sent, nil
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.List("", "*", mailboxes)
	}()

	var sent string
	for mbox := range mailboxes {
		if strings.Contains(mbox.Name, "[Gmail]/Sent Mail") {
			sent = "[Gmail]/Sent Mail"
		} else if sent == "" && strings.Contains(mbox.Name, "[Gmail]/Sent") {
			sent = "[Gmail]/Sent"
		}
	}

	if err := <-done; err != nil {
		return "", wrapKind("list folders", err, KindFolderAccess)
	}

	if sent == "" {
		sent = "[Gmail]/Sent Mail"
	}
	c.sent = sent
	return sent, nil
}

// Query describes a server-side message search within the active folder.
type Query struct {
	Since       time.Time
	Before      time.Time
	Subject     string
	SmallerThan uint32

	// HeaderField/HeaderValue add a HEADER criterion; the server matches
	// the value as a substring of the named header.
	HeaderField string
	HeaderValue string
}

func (q Query) criteria() *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	if !q.Since.IsZero() {
		criteria.Since = q.Since
	}
	if !q.Before.IsZero() {
		criteria.Before = q.Before
	}
	if q.Subject != "" {
		criteria.Header.Add("Subject", q.Subject)
	}
	if q.SmallerThan > 0 {
		criteria.Smaller = q.SmallerThan
	}
	if q.HeaderField != "" {
		criteria.Header.Add(q.HeaderField, q.HeaderValue)
	}
	return criteria
}

// Search returns the UIDs of messages in the active folder matching q,
// oldest first.
func (c *Client) Search(q Query) ([]uint32, error) {
	uids, err := c.conn.UidSearch(q.criteria())
	if err != nil {
		return nil, wrapKind("search", err, KindSearch)
	}
	return uids, nil
}

// FetchHeaders streams the raw header block of each message to fn.
// Individual fetch errors are logged and skipped; fn returning ErrStopFetch
// ends delivery early.
func (c *Client) FetchHeaders(uids []uint32, fn func(uid uint32, header io.Reader) error) error {
	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Specifier: imap.HeaderSpecifier},
		Peek:         true,
	}
	return c.fetch(uids, section, fn)
}

// FetchFull streams the full raw message (headers and body) to fn.
func (c *Client) FetchFull(uids []uint32, fn func(uid uint32, body io.Reader) error) error {
	section := &imap.BodySectionName{Peek: true}
	return c.fetch(uids, section, fn)
}

func (c *Client) fetch(uids []uint32, section *imap.BodySectionName, fn func(uint32, io.Reader) error) error {
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	stopped := false
	for i := 0; i < len(uids); i += fetchBatchSize {
		if stopped {
			break
		}
		end := i + fetchBatchSize
		if end > len(uids) {
			end = len(uids)
		}

		seqSet := new(imap.SeqSet)
		seqSet.AddNum(uids[i:end]...)

		messages := make(chan *imap.Message, fetchBatchSize)
		done := make(chan error, 1)
		go func() {
			done <- c.conn.UidFetch(seqSet, items, messages)
		}()

		for msg := range messages {
			if stopped || msg == nil {
				continue
			}
			body := msg.GetBody(section)
			if body == nil {
				continue
			}
			if err := fn(msg.Uid, body); err != nil {
				if errors.Is(err, ErrStopFetch) {
					stopped = true
					continue
				}
				log.Printf("Warning: fetch callback for message %d: %v", msg.Uid, err)
			}
		}

		if err := <-done; err != nil {
			log.Printf("Warning: error fetching batch: %v", err)
		}
	}

	return nil
}
