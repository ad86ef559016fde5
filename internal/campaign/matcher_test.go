package campaign

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/smartbrew/outreach/internal/message"
	"github.com/smartbrew/outreach/internal/thread"
)

func TestMatchesExecutive(t *testing.T) {
	tests := []struct {
		name      string
		ccHeader  string
		executive string
		want      bool
	}{
		{"empty filter admits all", "whoever@x.com", "", true},
		{"empty filter admits empty header", "", "", true},
		{"exact address", "Exec One <exec@ours.com>", "exec@ours.com", true},
		{"case insensitive", "EXEC@OURS.COM", "exec@ours.com", true},
		{"substring of longer address", "exec@ours.common.net", "exec@ours.com", true},
		{"absent from header", "other@ours.com", "exec@ours.com", false},
		{"filter with empty header", "", "exec@ours.com", false},
		{"whitespace-only filter admits all", "   ", "  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesExecutive(tt.ccHeader, tt.executive); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecutiveName(t *testing.T) {
	tests := []struct {
		name      string
		executive string
		from      message.Address
		want      string
	}{
		{"capitalizes local part", "rahul@ours.com", message.Address{}, "Rahul"},
		{"lowercases the rest", "RAHUL@ours.com", message.Address{}, "Rahul"},
		{"empty local part", "@ours.com", message.Address{}, "Unknown"},
		{"no filter uses sender name", "", message.Address{Name: "Jane Doe"}, "Jane Doe"},
		{"no filter no sender name", "", message.Address{Email: "jane@x.com"}, "Various"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := executiveName(tt.executive, tt.from); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildRow(t *testing.T) {
	t.Run("no recipients drops row", func(t *testing.T) {
		_, ok := buildRow(&message.Record{Subject: "hi"}, "")
		if ok {
			t.Error("row built for message with no To header")
		}
	})

	t.Run("name falls back to email", func(t *testing.T) {
		rec := &message.Record{
			To:      []message.Address{{Email: "contact@acme.com"}},
			Subject: "hello",
		}
		row, ok := buildRow(rec, "")
		if !ok {
			t.Fatal("row not built")
		}
		if row.Name != "contact@acme.com" {
			t.Errorf("Name: got %q", row.Name)
		}
	})

	t.Run("parsed date formatted", func(t *testing.T) {
		rec := &message.Record{
			To:   []message.Address{{Name: "Acme", Email: "contact@acme.com"}},
			Date: time.Date(2023, 6, 15, 9, 30, 0, 0, time.UTC),
		}
		row, _ := buildRow(rec, "")
		if row.Date != "2023-06-15 09:30" {
			t.Errorf("Date: got %q", row.Date)
		}
	})

	t.Run("unparsed date falls back to raw header", func(t *testing.T) {
		rec := &message.Record{
			To:      []message.Address{{Email: "contact@acme.com"}},
			RawDate: "garbled date string",
		}
		row, _ := buildRow(rec, "")
		if row.Date != "garbled date string" {
			t.Errorf("Date: got %q", row.Date)
		}
	})

	t.Run("empty subject placeholder", func(t *testing.T) {
		rec := &message.Record{To: []message.Address{{Email: "c@acme.com"}}}
		row, _ := buildRow(rec, "")
		if row.Subject != "(No Subject)" {
			t.Errorf("Subject: got %q", row.Subject)
		}
	})

	t.Run("only primary recipient kept", func(t *testing.T) {
		rec := &message.Record{
			To: []message.Address{
				{Name: "First", Email: "first@acme.com"},
				{Name: "Second", Email: "second@acme.com"},
			},
			Subject: "hi",
		}
		row, _ := buildRow(rec, "")
		if row.Email != "first@acme.com" {
			t.Errorf("Email: got %q", row.Email)
		}
	})
}

func TestWriteCSV(t *testing.T) {
	rows := []MatchRow{
		{
			Name:          "Acme Corp",
			Email:         "contact@acme.com",
			Date:          "2023-06-15 09:30",
			Subject:       "Partnership",
			Status:        thread.StatusResponded,
			ExecutiveName: "Rahul",
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("line count: got %d, want 2", len(lines))
	}
	if lines[0] != "Name,Follow-up Email,Date,Subject,Status,Executive Name" {
		t.Errorf("header: got %q", lines[0])
	}
	if lines[1] != "Acme Corp,contact@acme.com,2023-06-15 09:30,Partnership,Responded,Rahul" {
		t.Errorf("row: got %q", lines[1])
	}
}
