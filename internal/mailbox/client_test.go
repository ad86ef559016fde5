package mailbox

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/emersion/go-imap"
)

// fakeSession implements the session interface in memory.
type fakeSession struct {
	boxes     []string
	selected  string
	selects   []string
	uids      []uint32
	searchErr error
	listErr   error

	// fetched maps uid to raw message bytes, delivered in order.
	order   []uint32
	fetched map[uint32]string

	lastCriteria *imap.SearchCriteria
	loggedOut    bool
}

func (f *fakeSession) Login(username, password string) error { return nil }

func (f *fakeSession) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	f.selects = append(f.selects, name)
	f.selected = name
	return &imap.MailboxStatus{Name: name}, nil
}

func (f *fakeSession) Mailbox() *imap.MailboxStatus {
	if f.selected == "" {
		return nil
	}
	return &imap.MailboxStatus{Name: f.selected}
}

func (f *fakeSession) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	f.lastCriteria = criteria
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.uids, nil
}

func (f *fakeSession) UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	defer close(ch)

	var section *imap.BodySectionName
	for _, item := range items {
		if item == imap.FetchUid {
			continue
		}
		s, err := imap.ParseBodySectionName(item)
		if err != nil {
			return err
		}
		s.Peek = false // responses never carry the PEEK marker
		section = s
	}

	for _, uid := range f.order {
		if !seqset.Contains(uid) {
			continue
		}
		ch <- &imap.Message{
			Uid: uid,
			Body: map[*imap.BodySectionName]imap.Literal{
				section: bytes.NewBufferString(f.fetched[uid]),
			},
		}
	}
	return nil
}

func (f *fakeSession) List(ref, name string, ch chan *imap.MailboxInfo) error {
	defer close(ch)
	for _, box := range f.boxes {
		ch <- &imap.MailboxInfo{Name: box}
	}
	return f.listErr
}

func (f *fakeSession) Logout() error {
	f.loggedOut = true
	return nil
}

func newTestClient(f *fakeSession) *Client {
	return &Client{conn: f, owner: "me@example.com"}
}

func TestFindSentFolder(t *testing.T) {
	tests := []struct {
		name  string
		boxes []string
		want  string
	}{
		{
			name:  "prefers long form",
			boxes: []string{"INBOX", "[Gmail]/Sent", "[Gmail]/Sent Mail"},
			want:  "[Gmail]/Sent Mail",
		},
		{
			name:  "short form when long missing",
			boxes: []string{"INBOX", "[Gmail]/Sent"},
			want:  "[Gmail]/Sent",
		},
		{
			name:  "default when nothing matches",
			boxes: []string{"INBOX", "Drafts"},
			want:  "[Gmail]/Sent Mail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(&fakeSession{boxes: tt.boxes})
			got, err := c.FindSentFolder()
			if err != nil {
				t.Fatalf("FindSentFolder: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindSentFolderCached(t *testing.T) {
	f := &fakeSession{boxes: []string{"[Gmail]/Sent Mail"}}
	c := newTestClient(f)

	first, _ := c.FindSentFolder()

	// The folder list changing mid-connection must not change the answer.
	f.boxes = []string{"Other"}
	second, _ := c.FindSentFolder()

	if first != second {
		t.Errorf("cache miss: %q then %q", first, second)
	}
}

func TestFindSentFolderListError(t *testing.T) {
	c := newTestClient(&fakeSession{listErr: errors.New("LIST denied")})
	_, err := c.FindSentFolder()
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindFolderAccess {
		t.Errorf("kind: got %s, want %s", KindOf(err), KindFolderAccess)
	}
}

func TestWithFolderRestoresPrevious(t *testing.T) {
	f := &fakeSession{}
	c := newTestClient(f)

	if err := c.SelectFolder("[Gmail]/Sent Mail"); err != nil {
		t.Fatalf("SelectFolder: %v", err)
	}

	err := c.WithFolder("INBOX", func() error { return nil })
	if err != nil {
		t.Fatalf("WithFolder: %v", err)
	}

	want := []string{"[Gmail]/Sent Mail", "INBOX", "[Gmail]/Sent Mail"}
	if len(f.selects) != len(want) {
		t.Fatalf("selects: got %v, want %v", f.selects, want)
	}
	for i := range want {
		if f.selects[i] != want[i] {
			t.Errorf("select %d: got %s, want %s", i, f.selects[i], want[i])
		}
	}
}

func TestWithFolderRestoresOnError(t *testing.T) {
	f := &fakeSession{}
	c := newTestClient(f)
	c.SelectFolder("[Gmail]/Sent Mail")

	boom := errors.New("boom")
	err := c.WithFolder("INBOX", func() error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("fn error not surfaced: %v", err)
	}
	if f.selected != "[Gmail]/Sent Mail" {
		t.Errorf("folder not restored: %s", f.selected)
	}
}

func TestWithFolderNoPreviousSelection(t *testing.T) {
	f := &fakeSession{}
	c := newTestClient(f)

	c.WithFolder("INBOX", func() error { return nil })

	// Only the one select; nothing to restore.
	if len(f.selects) != 1 || f.selects[0] != "INBOX" {
		t.Errorf("selects: got %v", f.selects)
	}
}

func TestSearchCriteria(t *testing.T) {
	f := &fakeSession{uids: []uint32{1, 2}}
	c := newTestClient(f)

	since := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := c.Search(Query{
		Since:       since,
		Subject:     "Partnership",
		SmallerThan: 1000000,
		HeaderField: "In-Reply-To",
		HeaderValue: "<abc@x>",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	crit := f.lastCriteria
	if !crit.Since.Equal(since) {
		t.Errorf("Since: got %v", crit.Since)
	}
	if got := crit.Header.Get("Subject"); got != "Partnership" {
		t.Errorf("Subject criterion: got %q", got)
	}
	if crit.Smaller != 1000000 {
		t.Errorf("Smaller: got %d", crit.Smaller)
	}
	if got := crit.Header.Get("In-Reply-To"); got != "<abc@x>" {
		t.Errorf("header criterion: got %q", got)
	}
}

func TestSearchErrorKind(t *testing.T) {
	c := newTestClient(&fakeSession{searchErr: errors.New("SEARCH backend busy")})
	_, err := c.Search(Query{})
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindSearch {
		t.Errorf("kind: got %s", KindOf(err))
	}
}

func TestFetchHeadersDelivers(t *testing.T) {
	f := &fakeSession{
		order: []uint32{7, 8},
		fetched: map[uint32]string{
			7: "Subject: one\r\n\r\n",
			8: "Subject: two\r\n\r\n",
		},
	}
	c := newTestClient(f)

	var got []string
	err := c.FetchHeaders([]uint32{7, 8}, func(uid uint32, header io.Reader) error {
		data, _ := io.ReadAll(header)
		got = append(got, string(data))
		return nil
	})
	if err != nil {
		t.Fatalf("FetchHeaders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("delivered %d messages, want 2", len(got))
	}
}

func TestFetchStopsOnErrStopFetch(t *testing.T) {
	f := &fakeSession{
		order: []uint32{1, 2, 3},
		fetched: map[uint32]string{
			1: "Subject: a\r\n\r\n",
			2: "Subject: b\r\n\r\n",
			3: "Subject: c\r\n\r\n",
		},
	}
	c := newTestClient(f)

	count := 0
	err := c.FetchHeaders([]uint32{1, 2, 3}, func(uid uint32, header io.Reader) error {
		count++
		return ErrStopFetch
	})
	if err != nil {
		t.Fatalf("FetchHeaders: %v", err)
	}
	if count != 1 {
		t.Errorf("callback ran %d times, want 1", count)
	}
}

func TestFetchSkipsCallbackErrors(t *testing.T) {
	f := &fakeSession{
		order: []uint32{1, 2},
		fetched: map[uint32]string{
			1: "Subject: a\r\n\r\n",
			2: "Subject: b\r\n\r\n",
		},
	}
	c := newTestClient(f)

	count := 0
	err := c.FetchHeaders([]uint32{1, 2}, func(uid uint32, header io.Reader) error {
		count++
		if count == 1 {
			return errors.New("parse failed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("FetchHeaders: %v", err)
	}
	if count != 2 {
		t.Errorf("callback ran %d times, want 2 (errors skip, not stop)", count)
	}
}

func TestCloseLogsOut(t *testing.T) {
	f := &fakeSession{}
	c := newTestClient(f)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !f.loggedOut {
		t.Error("Logout not called")
	}
}
