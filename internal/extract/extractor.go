package extract

import (
	"io"
	"log"
	"time"

	"github.com/smartbrew/outreach/internal/mailbox"
	"github.com/smartbrew/outreach/internal/message"
	"github.com/smartbrew/outreach/internal/thread"
)

const (
	// Thread mapping is bounded to keep runs predictable: at most this many
	// of the most recent headers per folder, within a wall-clock budget.
	maxThreadHeaders = 1000
	threadBudget     = 60 * time.Second

	// Full-message extraction skips anything over 1MB and stops a folder
	// after this many consecutive failures.
	maxMessageBytes      = 1000000
	maxConsecutiveErrors = 5

	defaultMaxMessages = 3000
)

// Options selects which messages an extraction run covers.
type Options struct {
	Folder      message.Origin // OriginSent or OriginInbox
	Since       time.Time
	Before      time.Time
	Subject     string
	MaxMessages int
}

// Extractor pulls messages from one folder, reconstructs conversation
// threads across Sent and Inbox, and emits one result row per recipient
// (Sent) or per message (Inbox).
type Extractor struct {
	mbox *mailbox.Client
}

func New(mbox *mailbox.Client) *Extractor {
	return &Extractor{mbox: mbox}
}

// Run performs a full extraction. The thread graph is rebuilt from scratch
// on every call; nothing is cached across runs.
func (e *Extractor) Run(opts Options) ([]Row, error) {
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = defaultMaxMessages
	}

	sentFolder, err := e.mbox.FindSentFolder()
	if err != nil {
		return nil, err
	}

	graph := thread.NewGraph()
	if err := e.mapThreads(graph, sentFolder, opts); err != nil {
		return nil, err
	}
	if err := e.mapThreads(graph, "INBOX", opts); err != nil {
		return nil, err
	}
	log.Printf("Thread mapping complete: %d threads", graph.Threads())

	folder := "INBOX"
	origin := message.OriginInbox
	if opts.Folder == message.OriginSent {
		folder = sentFolder
		origin = message.OriginSent
	}
	if err := e.mbox.SelectFolder(folder); err != nil {
		return nil, err
	}

	uids, err := e.mbox.Search(mailbox.Query{
		Since:       opts.Since,
		Before:      opts.Before,
		Subject:     opts.Subject,
		SmallerThan: maxMessageBytes,
	})
	if err != nil {
		return nil, err
	}
	if len(uids) > opts.MaxMessages {
		uids = uids[:opts.MaxMessages]
	}
	if len(uids) == 0 {
		return nil, nil
	}

	var rows []Row
	consecutiveErrors := 0

	err = e.mbox.FetchFull(uids, func(uid uint32, body io.Reader) error {
		rec, err := message.Normalize(body, origin, e.mbox.Owner())
		if err != nil {
			log.Printf("Warning: error processing message %d: %v", uid, err)
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutiveErrors {
				log.Printf("Too many consecutive errors, stopping extraction")
				return mailbox.ErrStopFetch
			}
			return nil
		}
		consecutiveErrors = 0

		rows = append(rows, rowsFor(rec, graph, e.mbox.Owner())...)
		return nil
	})
	if err != nil {
		return rows, err
	}

	return rows, nil
}

// mapThreads registers message ids and reference chains from one folder into
// the graph. The sample is capped and time-boxed; on budget exhaustion the
// partial graph collected so far is kept, favoring availability over
// completeness. Per-message parse errors are skipped.
func (e *Extractor) mapThreads(graph *thread.Graph, folder string, opts Options) error {
	if err := e.mbox.SelectFolder(folder); err != nil {
		return err
	}

	uids, err := e.mbox.Search(mailbox.Query{Since: opts.Since, Before: opts.Before})
	if err != nil {
		return err
	}
	if len(uids) > maxThreadHeaders {
		uids = uids[len(uids)-maxThreadHeaders:]
	}
	if len(uids) == 0 {
		return nil
	}

	start := time.Now()
	return e.mbox.FetchHeaders(uids, func(uid uint32, header io.Reader) error {
		if time.Since(start) > threadBudget {
			log.Printf("Thread mapping timeout reached in %s, using partial mapping", folder)
			return mailbox.ErrStopFetch
		}

		rec, err := message.Normalize(header, message.OriginInbox, e.mbox.Owner())
		if err != nil {
			log.Printf("Warning: error processing headers for threading: %v", err)
			return nil
		}
		if rec.MessageID == "" {
			return nil
		}

		graph.Add(rec.MessageID, thread.RefList(rec.References, rec.InReplyTo))
		return nil
	})
}

// rowsFor expands one normalized message into result rows.
func rowsFor(rec *message.Record, graph *thread.Graph, owner string) []Row {
	status := thread.Classify(rec, graph)
	if rec.Origin == message.OriginFailure {
		status = thread.StatusFailureDelay
	}

	if rec.Origin == message.OriginSent {
		return sentRows(rec, status, owner)
	}
	return inboxRows(rec, status, owner)
}

// sentRows emits one row per To recipient. Bounce artifacts were already
// dropped during normalization.
func sentRows(rec *message.Record, status thread.Status, owner string) []Row {
	if len(rec.To) == 0 {
		return nil
	}

	senderName := rec.From.Name
	if senderName == "" {
		senderName = "Me"
	}
	senderEmail := rec.From.Email
	if senderEmail == "" {
		senderEmail = owner
	}

	rows := make([]Row, 0, len(rec.To))
	for _, recipient := range rec.To {
		name := recipient.Name
		if name == "" {
			name = "Unknown"
		}
		rows = append(rows, Row{
			SenderName:     senderName,
			SenderEmail:    senderEmail,
			RecipientName:  name,
			RecipientEmail: recipient.Email,
			Date:           rec.RawDate,
			Subject:        rec.Subject,
			Status:         string(status),
		})
	}
	return rows
}

func inboxRows(rec *message.Record, status thread.Status, owner string) []Row {
	if rec.From.Email == "" || message.IsBounceArtifact(rec.From.Email) {
		return nil
	}

	fromName := rec.From.Name
	if fromName == "" {
		fromName = "Unknown"
	}

	recipientName := "Me"
	recipientEmail := owner
	if len(rec.To) > 0 {
		if rec.To[0].Name != "" {
			recipientName = rec.To[0].Name
		}
		recipientEmail = rec.To[0].Email
	}

	return []Row{{
		SenderName:        fromName,
		SenderEmail:       rec.From.Email,
		RecipientName:     recipientName,
		RecipientEmail:    recipientEmail,
		Date:              rec.RawDate,
		Subject:           rec.Subject,
		Status:            string(status),
		OriginalRecipient: rec.OriginalRecipient,
	}}
}
