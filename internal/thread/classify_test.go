package thread

import (
	"testing"

	"github.com/smartbrew/outreach/internal/message"
)

func TestClassifySubjectFallback(t *testing.T) {
	g := NewGraph()

	tests := []struct {
		name    string
		subject string
		want    Status
	}{
		{"plain subject", "Partnership Opportunity", StatusNotResponded},
		{"reply prefix", "Re: Partnership Opportunity", StatusResponded},
		{"reply prefix lowercase", "re: hello", StatusResponded},
		{"forward prefix", "Fw: Partnership Opportunity", StatusResponded},
		{"forward long prefix", "Fwd: see below", StatusResponded},
		{"prefix embedded mid-subject", "Update (Re: budget)", StatusResponded},
		{"empty subject", "", StatusNotResponded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &message.Record{Subject: tt.subject}
			if got := Classify(rec, g); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyThreadSizeWins(t *testing.T) {
	g := NewGraph()
	g.Add("msg@x", nil)
	g.Add("reply@x", []string{"msg@x"})

	rec := &message.Record{MessageID: "msg@x", Subject: "no prefixes here"}
	if got := Classify(rec, g); got != StatusResponded {
		t.Errorf("got %s, want %s", got, StatusResponded)
	}
}

func TestClassifySingletonThreadFallsThrough(t *testing.T) {
	g := NewGraph()
	g.Add("lonely@x", nil)

	rec := &message.Record{MessageID: "lonely@x", Subject: "quarterly check-in"}
	if got := Classify(rec, g); got != StatusNotResponded {
		t.Errorf("got %s, want %s", got, StatusNotResponded)
	}
}

func TestClassifyReferencesImplyResponse(t *testing.T) {
	g := NewGraph()

	tests := []struct {
		name string
		rec  *message.Record
		want Status
	}{
		{
			name: "references present",
			rec:  &message.Record{Subject: "plain", References: []string{"a@x"}},
			want: StatusResponded,
		},
		{
			name: "in-reply-to present",
			rec:  &message.Record{Subject: "plain", InReplyTo: "a@x"},
			want: StatusResponded,
		},
		{
			name: "no evidence",
			rec:  &message.Record{Subject: "plain"},
			want: StatusNotResponded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.rec, g); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
