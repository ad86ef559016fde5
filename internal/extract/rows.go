package extract

import (
	"encoding/csv"
	"io"

	"github.com/smartbrew/outreach/internal/message"
)

// Row is one extracted result, suitable for tabular display and CSV export.
// The column set varies by folder: inbox rows carry the recovered original
// recipient of delivery notices, sent rows do not.
type Row struct {
	SenderName        string
	SenderEmail       string
	RecipientName     string
	RecipientEmail    string
	Date              string
	Subject           string
	Status            string
	OriginalRecipient string
}

// Headers returns the CSV column names for a folder.
func Headers(origin message.Origin) []string {
	base := []string{
		"Sender Name", "Sender Email",
		"Recipient Name", "Recipient Email",
		"Date", "Subject", "Status",
	}
	if origin == message.OriginSent {
		return base
	}
	return append(base, "Original Recipient Email")
}

// Values returns the row's cells in Headers order.
func (r Row) Values(origin message.Origin) []string {
	base := []string{
		r.SenderName, r.SenderEmail,
		r.RecipientName, r.RecipientEmail,
		r.Date, r.Subject, r.Status,
	}
	if origin == message.OriginSent {
		return base
	}
	return append(base, r.OriginalRecipient)
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, origin message.Origin, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers(origin)); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.Values(origin)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
