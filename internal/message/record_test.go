package message

import (
	"strings"
	"testing"
)

const owner = "me@example.com"

func normalize(t *testing.T, raw string, origin Origin) *Record {
	t.Helper()
	rec, err := Normalize(strings.NewReader(raw), origin, owner)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return rec
}

func TestNormalizeSentMessage(t *testing.T) {
	raw := "Message-ID: <abc123@mail.example.com>\r\n" +
		"From: Jane Doe <Jane@Example.com>\r\n" +
		"To: Acme Corp <contact@acme.com>, second@acme.com\r\n" +
		"Cc: Exec One <exec@ours.com>\r\n" +
		"Subject: Partnership Opportunity\r\n" +
		"Date: Mon, 02 Jan 2023 15:04:05 +0000\r\n" +
		"\r\n" +
		"Hello there.\r\n"

	rec := normalize(t, raw, OriginSent)

	if rec.MessageID != "abc123@mail.example.com" {
		t.Errorf("MessageID: got %q", rec.MessageID)
	}
	if rec.From.Email != "jane@example.com" {
		t.Errorf("From lowercased: got %q", rec.From.Email)
	}
	if rec.From.Name != "Jane Doe" {
		t.Errorf("From name: got %q", rec.From.Name)
	}
	if len(rec.To) != 2 {
		t.Fatalf("To count: got %d, want 2", len(rec.To))
	}
	if rec.To[0].Email != "contact@acme.com" || rec.To[0].Name != "Acme Corp" {
		t.Errorf("first recipient: got %+v", rec.To[0])
	}
	if rec.CcHeader == "" || !strings.Contains(rec.CcHeader, "exec@ours.com") {
		t.Errorf("CcHeader kept raw: got %q", rec.CcHeader)
	}
	if rec.Subject != "Partnership Opportunity" {
		t.Errorf("Subject: got %q", rec.Subject)
	}
	if rec.Date.IsZero() {
		t.Error("Date should have parsed")
	}
	if rec.Origin != OriginSent {
		t.Errorf("Origin: got %s", rec.Origin)
	}
}

func TestNormalizeThreadingHeaders(t *testing.T) {
	raw := "Message-ID: <reply@x>\r\n" +
		"In-Reply-To: <orig@x>\r\n" +
		"References: <root@x> <orig@x>\r\n" +
		"Subject: Re: hello\r\n" +
		"\r\n"

	rec := normalize(t, raw, OriginInbox)

	if rec.InReplyTo != "orig@x" {
		t.Errorf("InReplyTo: got %q", rec.InReplyTo)
	}
	if len(rec.References) != 2 || rec.References[0] != "root@x" {
		t.Errorf("References: got %v", rec.References)
	}
}

func TestNormalizeBadDateDegrades(t *testing.T) {
	raw := "Message-ID: <a@x>\r\n" +
		"Date: not a real date\r\n" +
		"Subject: hi\r\n" +
		"\r\n"

	rec := normalize(t, raw, OriginSent)

	if !rec.Date.IsZero() {
		t.Errorf("Date should be zero, got %v", rec.Date)
	}
	if rec.RawDate != "not a real date" {
		t.Errorf("RawDate kept: got %q", rec.RawDate)
	}
}

func TestNormalizeDropsBounceRecipients(t *testing.T) {
	raw := "From: me@example.com\r\n" +
		"To: real@acme.com, 3oabc123@bounces.example.net\r\n" +
		"Subject: hi\r\n" +
		"\r\n"

	rec := normalize(t, raw, OriginSent)

	if len(rec.To) != 1 {
		t.Fatalf("To count: got %d, want 1", len(rec.To))
	}
	if rec.To[0].Email != "real@acme.com" {
		t.Errorf("kept recipient: got %q", rec.To[0].Email)
	}
}

func TestIsBounceArtifact(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"3oabc@bounces.example.net", true},
		{"real@acme.com", false},
		{"user@bouncesomething.com", false},
	}
	for _, tt := range tests {
		if got := IsBounceArtifact(tt.addr); got != tt.want {
			t.Errorf("IsBounceArtifact(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestNormalizeDeliveryFailure(t *testing.T) {
	raw := "From: Mail Delivery Subsystem <mailer-daemon@googlemail.com>\r\n" +
		"To: me@example.com\r\n" +
		"Subject: Delivery Status Notification (Failure)\r\n" +
		"\r\n" +
		"Your message to gone@acme.com could not be delivered.\r\n"

	rec := normalize(t, raw, OriginInbox)

	if rec.Origin != OriginFailure {
		t.Fatalf("Origin: got %s, want %s", rec.Origin, OriginFailure)
	}
	if rec.OriginalRecipient != "gone@acme.com" {
		t.Errorf("OriginalRecipient: got %q", rec.OriginalRecipient)
	}
}

func TestNormalizeFailureSkipsOwnerAddress(t *testing.T) {
	raw := "From: mailer-daemon@googlemail.com\r\n" +
		"To: me@example.com\r\n" +
		"Subject: Delivery incomplete\r\n" +
		"\r\n" +
		"Delivery to me@example.com delayed. Original recipient: target@acme.com\r\n"

	rec := normalize(t, raw, OriginInbox)

	if rec.OriginalRecipient != "target@acme.com" {
		t.Errorf("OriginalRecipient: got %q, want target@acme.com", rec.OriginalRecipient)
	}
}

func TestNormalizeFailureOnlyAppliesToInbox(t *testing.T) {
	raw := "From: me@example.com\r\n" +
		"To: someone@acme.com\r\n" +
		"Subject: delivery status notification test run\r\n" +
		"\r\n"

	rec := normalize(t, raw, OriginSent)

	if rec.Origin != OriginSent {
		t.Errorf("sent messages are never failure notices, got %s", rec.Origin)
	}
}

func TestReadPlainBodyPrefersTextPart(t *testing.T) {
	raw := "From: a@x.com\r\n" +
		"To: b@y.com\r\n" +
		"Subject: multipart\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"BOUND\"\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"plain wins\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>html loses</p>\r\n" +
		"--BOUND--\r\n"

	rec := normalize(t, raw, OriginInbox)

	if !strings.Contains(rec.Body, "plain wins") {
		t.Errorf("Body: got %q", rec.Body)
	}
}

func TestReadPlainBodyStripsHTMLFallback(t *testing.T) {
	raw := "From: a@x.com\r\n" +
		"To: b@y.com\r\n" +
		"Subject: html only\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<html><body><p>Visible text</p></body></html>\r\n"

	rec := normalize(t, raw, OriginInbox)

	if !strings.Contains(rec.Body, "Visible text") {
		t.Errorf("Body: got %q", rec.Body)
	}
	if strings.Contains(rec.Body, "<p>") {
		t.Errorf("markup not stripped: %q", rec.Body)
	}
}
