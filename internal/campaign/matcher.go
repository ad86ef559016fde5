package campaign

import (
	"encoding/csv"
	"io"
	"log"
	"strings"
	"time"

	"github.com/smartbrew/outreach/internal/mailbox"
	"github.com/smartbrew/outreach/internal/message"
	"github.com/smartbrew/outreach/internal/thread"
)

const defaultLookback = 30 * 24 * time.Hour

// Filters narrows which sent messages a match run considers.
type Filters struct {
	// Executive restricts matches to messages whose Cc header contains this
	// address. The test is a case-insensitive substring match against the
	// raw header value, so a filter that happens to be a prefix of a longer
	// address also matches. That looseness is intentional and documented.
	Executive string

	Since   time.Time
	Before  time.Time
	Subject string
}

// MatchRow is one sent message that met the filter criteria. Unlike the
// extractor, recipient multiplicity collapses to the primary To recipient.
type MatchRow struct {
	Name          string
	Email         string
	Date          string
	Subject       string
	Status        thread.Status
	ExecutiveName string
}

// Matcher correlates sent campaign messages with inbox replies. It works
// message by message against the live connection: reply detection is a
// targeted In-Reply-To search rather than a full thread graph build.
type Matcher struct {
	mbox *mailbox.Client
}

func New(mbox *mailbox.Client) *Matcher {
	return &Matcher{mbox: mbox}
}

// Match scans the sent folder for messages passing f and reports each with
// its reply status. Errors on individual messages are logged and skipped;
// connection, folder, and search failures abort the run with a typed error.
func (m *Matcher) Match(f Filters) ([]MatchRow, error) {
	sentFolder, err := m.mbox.FindSentFolder()
	if err != nil {
		return nil, err
	}
	if err := m.mbox.SelectFolder(sentFolder); err != nil {
		return nil, err
	}

	since := f.Since
	if since.IsZero() {
		since = time.Now().Add(-defaultLookback)
	}

	uids, err := m.mbox.Search(mailbox.Query{
		Since:   since,
		Before:  f.Before,
		Subject: f.Subject,
	})
	if err != nil {
		return nil, err
	}

	var rows []MatchRow
	err = m.mbox.FetchFull(uids, func(uid uint32, body io.Reader) error {
		rec, err := message.Normalize(body, message.OriginSent, m.mbox.Owner())
		if err != nil {
			log.Printf("Warning: skipping message %d: %v", uid, err)
			return nil
		}

		if !matchesExecutive(rec.CcHeader, f.Executive) {
			return nil
		}

		row, ok := buildRow(rec, f.Executive)
		if !ok {
			return nil
		}

		responded, err := m.hasReply(rec.MessageID)
		if err != nil {
			log.Printf("Warning: reply check for message %d: %v", uid, err)
		}
		row.Status = thread.StatusNotResponded
		if responded {
			row.Status = thread.StatusResponded
		}

		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return rows, err
	}

	return rows, nil
}

// hasReply looks in the inbox for any message replying to messageID. The
// active folder is restored afterwards no matter how the lookup ends, so
// the caller's sent-folder iteration can continue.
func (m *Matcher) hasReply(messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}

	found := false
	err := m.mbox.WithFolder("INBOX", func() error {
		uids, err := m.mbox.Search(mailbox.Query{
			HeaderField: "In-Reply-To",
			HeaderValue: "<" + messageID + ">",
		})
		if err != nil {
			return err
		}
		found = len(uids) > 0
		return nil
	})
	if err != nil {
		// A failed lookup means we cannot prove a reply; report none.
		return false, err
	}
	return found, nil
}

// matchesExecutive applies the CC filter. An empty filter admits everything.
func matchesExecutive(ccHeader, executive string) bool {
	executive = strings.TrimSpace(executive)
	if executive == "" {
		return true
	}
	return strings.Contains(strings.ToLower(ccHeader), strings.ToLower(executive))
}

// buildRow derives the recipient-facing fields of a match row. Messages
// without a usable To header produce no row.
func buildRow(rec *message.Record, executive string) (MatchRow, bool) {
	if len(rec.To) == 0 {
		return MatchRow{}, false
	}

	primary := rec.To[0]
	name := primary.Name
	if name == "" || strings.EqualFold(name, primary.Email) {
		// No real display name; fall back to the address so templates can
		// still address the row.
		name = primary.Email
	}

	date := rec.RawDate
	if !rec.Date.IsZero() {
		date = rec.Date.Format("2006-01-02 15:04")
	}

	subject := rec.Subject
	if subject == "" {
		subject = "(No Subject)"
	}

	return MatchRow{
		Name:          name,
		Email:         primary.Email,
		Date:          date,
		Subject:       subject,
		ExecutiveName: executiveName(executive, rec.From),
	}, true
}

// executiveName picks the attribution name for a row: the filter address's
// local part capitalized when a filter was given, otherwise the sender's
// display name, defaulting to "Various".
func executiveName(executive string, from message.Address) string {
	if executive != "" {
		local, _, _ := strings.Cut(executive, "@")
		if local == "" {
			return "Unknown"
		}
		return strings.ToUpper(local[:1]) + strings.ToLower(local[1:])
	}
	if from.Name != "" {
		return from.Name
	}
	return "Various"
}

// MatchHeaders is the CSV column set for match results.
func MatchHeaders() []string {
	return []string{"Name", "Follow-up Email", "Date", "Subject", "Status", "Executive Name"}
}

// Values returns the row's cells in MatchHeaders order.
func (r MatchRow) Values() []string {
	return []string{r.Name, r.Email, r.Date, r.Subject, string(r.Status), r.ExecutiveName}
}

// WriteCSV writes match rows with a header line.
func WriteCSV(w io.Writer, rows []MatchRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MatchHeaders()); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
