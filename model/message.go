package model

// StorageFormat identifies how a message entry was persisted inside the
// OLM archive.
type StorageFormat string

const (
	// FormatMarkup marks entries stored as an OPF XML document.
	FormatMarkup StorageFormat = "markup"
	// FormatBlob marks entries stored as an opaque encoded blob.
	FormatBlob StorageFormat = "blob"
)

// Address is a display name plus email address pair. Either part may be
// empty; the EML builder substitutes placeholders as needed.
type Address struct {
	Name  string
	Email string
}

// Empty reports whether neither part of the address is set.
func (a Address) Empty() bool {
	return a.Name == "" && a.Email == ""
}

// NormalizedMessage is the format-agnostic intermediate record extracted
// from one archive entry. Every field is optional; a zero value still
// renders to a minimal valid EML.
type NormalizedMessage struct {
	Sender     Address
	Recipients []Address
	Subject    string
	// Date is preserved verbatim when it cannot be parsed; the builder
	// decides how to render it.
	Date      string
	Body      string
	MessageID string
	// EncodingHint suggests a Content-Transfer-Encoding for the rendered
	// body. Empty means the builder default.
	EncodingHint string
}

// IsEmpty reports whether extraction recovered nothing at all.
func (m NormalizedMessage) IsEmpty() bool {
	return m.Sender.Empty() && len(m.Recipients) == 0 &&
		m.Subject == "" && m.Date == "" && m.Body == "" && m.MessageID == ""
}
