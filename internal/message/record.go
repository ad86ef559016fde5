package message

import (
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// Origin identifies which mailbox folder a record came from.
type Origin string

const (
	OriginSent    Origin = "sent"
	OriginInbox   Origin = "inbox"
	OriginFailure Origin = "failure_delay"
)

// Address is one (display name, address) pair from an address-list header.
// The address is lower-cased for comparisons.
type Address struct {
	Name  string
	Email string
}

// Record is the normalized identity of one fetched message. Identifiers are
// stored without angle brackets so they can be used directly as graph keys.
type Record struct {
	MessageID  string
	References []string
	InReplyTo  string

	From     Address
	To       []Address
	CcHeader string // raw Cc value, kept for substring filtering

	Subject string
	Date    time.Time // zero when the Date header failed to parse
	RawDate string    // the header as received

	// Body holds the first plain-text part, or HTML stripped to text when
	// no plain part exists. Used only for delivery-failure address scans.
	Body string

	Origin Origin

	// OriginalRecipient is the address a delivery notice was about,
	// recovered from the notice body. Set only for OriginFailure.
	OriginalRecipient string
}

var (
	emailPattern = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.\w+`)

	failureSubjects = []string{
		"delivery status notification",
		"delivery incomplete",
		"failure",
	}
)

// Normalize parses raw message bytes (headers alone, or a full message) into
// a Record. Decoding problems degrade to empty fields rather than failing
// the message; only an unreadable header block is an error.
func Normalize(r io.Reader, origin Origin, owner string) (*Record, error) {
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, err
	}

	hdr := mail.Header{Header: entity.Header}
	rec := &Record{Origin: origin, RawDate: hdr.Get("Date"), CcHeader: hdr.Get("Cc")}

	if id, err := hdr.MessageID(); err == nil {
		rec.MessageID = id
	}
	if refs, err := hdr.MsgIDList("References"); err == nil {
		rec.References = refs
	}
	if irt, err := hdr.MsgIDList("In-Reply-To"); err == nil && len(irt) > 0 {
		rec.InReplyTo = irt[0]
	}

	if subject, err := hdr.Subject(); err == nil {
		rec.Subject = subject
	} else {
		rec.Subject = hdr.Get("Subject")
	}
	if date, err := hdr.Date(); err == nil {
		rec.Date = date
	}

	if from, err := hdr.AddressList("From"); err == nil && len(from) > 0 {
		rec.From = toPair(from[0])
	}
	if to, err := hdr.AddressList("To"); err == nil {
		for _, a := range to {
			pair := toPair(a)
			if pair.Email == "" || IsBounceArtifact(pair.Email) {
				continue
			}
			rec.To = append(rec.To, pair)
		}
	}

	rec.Body = readPlainBody(entity)

	if origin == OriginInbox && isDeliveryFailure(rec.Subject) {
		rec.Origin = OriginFailure
		rec.OriginalRecipient = extractOriginalRecipient(rec.Body, owner)
	}

	return rec, nil
}

func toPair(a *mail.Address) Address {
	return Address{Name: a.Name, Email: strings.ToLower(a.Address)}
}

// IsBounceArtifact reports whether an address is a VERP bounce address
// rather than a real recipient.
func IsBounceArtifact(addr string) bool {
	return strings.Contains(addr, "@bounces.")
}

func isDeliveryFailure(subject string) bool {
	subject = strings.ToLower(subject)
	for _, s := range failureSubjects {
		if strings.Contains(subject, s) {
			return true
		}
	}
	return false
}

// readPlainBody returns the first text/plain inline part. When the message
// only carries HTML, the markup is stripped to text instead.
func readPlainBody(entity *message.Entity) string {
	mr := mail.NewReader(entity)

	var html string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			body, _ := io.ReadAll(p.Body)
			if strings.HasPrefix(ct, "text/plain") {
				return string(body)
			}
			if strings.HasPrefix(ct, "text/html") && html == "" {
				html = string(body)
			}
		}
	}

	if html != "" {
		return htmlToText(html)
	}
	return ""
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}

// extractOriginalRecipient scans a delivery-notice body for the address the
// notice is about: the first address that is not the mailbox owner and not a
// bounce-domain artifact.
func extractOriginalRecipient(body, owner string) string {
	for _, match := range emailPattern.FindAllString(body, -1) {
		if strings.EqualFold(match, owner) {
			continue
		}
		if strings.HasSuffix(strings.ToLower(match), ".bounces.google.com") {
			continue
		}
		return match
	}
	return ""
}
