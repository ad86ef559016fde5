package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Recipient is one row of a campaign recipient list.
type Recipient struct {
	Name  string
	Email string
}

// LoadRecipients reads a recipient CSV. The header must carry Name and
// Email columns; anything else is ignored. Rows without an address are
// dropped rather than failing the whole file.
func LoadRecipients(path string) ([]Recipient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recipients file: %w", err)
	}
	defer f.Close()
	return ReadRecipients(f)
}

func ReadRecipients(r io.Reader) ([]Recipient, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1 // tolerate ragged rows; exporters produce them

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read recipients header: %w", err)
	}

	nameCol, emailCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "name":
			nameCol = i
		case "email":
			emailCol = i
		}
	}
	var missing []string
	if emailCol < 0 {
		missing = append(missing, "Email")
	}
	if nameCol < 0 {
		missing = append(missing, "Name")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns in CSV: %s", strings.Join(missing, ", "))
	}

	var recipients []Recipient
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read recipients row: %w", err)
		}
		if emailCol >= len(row) {
			continue
		}
		email := strings.TrimSpace(row[emailCol])
		if email == "" {
			continue
		}
		name := ""
		if nameCol < len(row) {
			name = strings.TrimSpace(row[nameCol])
		}
		recipients = append(recipients, Recipient{Name: name, Email: email})
	}
	return recipients, nil
}
