package eml

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jhillyerd/enmime/v2"

	"github.com/dhcgn/olm-to-eml/model"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestBuild_RoundTrip(t *testing.T) {
	msg := model.NormalizedMessage{
		Sender: model.Address{Name: "Alice", Email: "alice@example.com"},
		Recipients: []model.Address{
			{Name: "Bob", Email: "bob@example.com"},
			{Email: "carol@example.com"},
		},
		Subject:   "Quarterly report",
		Date:      "2024-05-21T13:12:19Z",
		Body:      "Numbers attached.\nSee table below.",
		MessageID: "abc123@example.com",
	}

	raw, err := Build(msg, fixedNow)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("re-parse rendered message: %v", err)
	}

	from, err := env.AddressList("From")
	if err != nil || len(from) != 1 {
		t.Fatalf("From list = %v, err = %v", from, err)
	}
	if from[0].Address != "alice@example.com" || from[0].Name != "Alice" {
		t.Errorf("From = %+v", from[0])
	}

	to, err := env.AddressList("To")
	if err != nil || len(to) != 2 {
		t.Fatalf("To list = %v, err = %v", to, err)
	}
	if to[0].Address != "bob@example.com" || to[1].Address != "carol@example.com" {
		t.Errorf("To = %+v, %+v", to[0], to[1])
	}

	if got := env.GetHeader("Subject"); got != "Quarterly report" {
		t.Errorf("Subject = %q", got)
	}
	// The wire format carries CRLF line endings; compare normalized.
	if got := strings.ReplaceAll(env.Text, "\r\n", "\n"); got != msg.Body {
		t.Errorf("body = %q, want %q", got, msg.Body)
	}

	date, err := time.Parse(time.RFC1123Z, env.GetHeader("Date"))
	if err != nil {
		t.Fatalf("Date header %q does not parse: %v", env.GetHeader("Date"), err)
	}
	if !date.Equal(time.Date(2024, 5, 21, 13, 12, 19, 0, time.UTC)) {
		t.Errorf("Date = %v", date)
	}
}

func TestBuild_SparseMessage(t *testing.T) {
	raw, err := Build(model.NormalizedMessage{}, fixedNow)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("re-parse rendered message: %v", err)
	}

	from, err := env.AddressList("From")
	if err != nil || len(from) != 1 || from[0].Address != PlaceholderSender {
		t.Errorf("From = %v, err = %v, want placeholder sender", from, err)
	}
	to, err := env.AddressList("To")
	if err != nil || len(to) != 1 || to[0].Address != PlaceholderRecipient {
		t.Errorf("To = %v, err = %v, want placeholder recipient", to, err)
	}
	if _, ok := env.Root.Header["Subject"]; !ok {
		t.Error("Subject header missing from sparse message")
	}
	date, err := time.Parse(time.RFC1123Z, env.GetHeader("Date"))
	if err != nil {
		t.Fatalf("Date header %q does not parse: %v", env.GetHeader("Date"), err)
	}
	if !date.Equal(fixedNow) {
		t.Errorf("Date = %v, want conversion time fallback %v", date, fixedNow)
	}
}

func TestBuild_FreeFormDatePreserved(t *testing.T) {
	msg := model.NormalizedMessage{Date: "sometime last spring"}
	raw, err := Build(msg, fixedNow)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(string(raw), "Date: sometime last spring") {
		t.Errorf("free-form date not preserved verbatim:\n%s", raw)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	msg := model.NormalizedMessage{
		Sender:  model.Address{Email: "a@x.com"},
		Subject: "Hello",
		Date:    "2024-05-21T13:12:19Z",
		Body:    "Hi there",
	}

	first, err := Build(msg, fixedNow)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	second, err := Build(msg, fixedNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("rendering the same message twice is not byte-identical")
	}
}

func TestFilename(t *testing.T) {
	cases := []struct {
		seq  int
		want string
	}{
		{1, "message_00001.eml"},
		{3, "message_00003.eml"},
		{99999, "message_99999.eml"},
		{100003, "message_100003.eml"}, // width grows past the pad
	}
	for _, tc := range cases {
		if got := Filename(tc.seq); got != tc.want {
			t.Errorf("Filename(%d) = %q, want %q", tc.seq, got, tc.want)
		}
	}
}
