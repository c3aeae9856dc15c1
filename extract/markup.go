package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"

	"github.com/dhcgn/olm-to-eml/model"
)

// opfFieldPrefix is the element name family Outlook for Mac uses for
// message-copy fields inside the OPF XML schema.
const opfFieldPrefix = "OPFMessageCopy"

// Address-bearing child elements store their data in these attributes.
const (
	attrAddress = "OPFContactEmailAddressAddress"
	attrName    = "OPFContactEmailAddressName"
)

// addrContext tracks which address list the walker is currently inside.
type addrContext int

const (
	ctxNone addrContext = iota
	ctxFrom
	ctxTo
)

// fromMarkup walks the OPF XML tree and pulls the known message-copy
// fields. Unknown elements are ignored; a malformed document returns an
// error and the caller degrades the entry to an empty record.
func (e *Extractor) fromMarkup(raw []byte) (model.NormalizedMessage, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Strict = false

	var msg model.NormalizedMessage
	var (
		buf         strings.Builder
		captureElem string // local name of the element being captured
		addrCtx     addrContext
		ctxElem     string // local name that opened the address context
		pendingAddr *model.Address
		displayTo   string
		recvTime    string
		htmlBody    string
	)

	assign := func(elem, value string) {
		value = strings.TrimSpace(value)
		switch elem {
		case "Subject":
			msg.Subject = value
		case "SentTime":
			msg.Date = value
		case "ReceivedTime":
			recvTime = value
		case "Body":
			msg.Body = value
		case "HTMLBody":
			htmlBody = value
		case "MessageID":
			msg.MessageID = strings.Trim(value, "<>")
		case "DisplayTo":
			displayTo = value
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return model.NormalizedMessage{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local

			if addrCtx != ctxNone {
				addr := addressFromAttrs(t.Attr)
				if addr.Empty() {
					// Some client versions put the address in the text node
					// instead of attributes.
					pendingAddr = &model.Address{}
					captureElem = local
					buf.Reset()
				} else {
					e.commitAddress(&msg, addrCtx, addr)
				}
				continue
			}

			if !strings.HasPrefix(local, opfFieldPrefix) {
				continue
			}
			switch field := strings.TrimPrefix(local, opfFieldPrefix); field {
			case "FromAddresses", "SenderAddress":
				addrCtx = ctxFrom
				ctxElem = local
			case "ToAddresses":
				addrCtx = ctxTo
				ctxElem = local
			case "Subject", "SentTime", "ReceivedTime", "Body", "HTMLBody", "MessageID", "DisplayTo":
				captureElem = local
				buf.Reset()
			}

		case xml.CharData:
			if captureElem != "" {
				buf.Write(t)
			}

		case xml.EndElement:
			local := t.Name.Local
			if captureElem != "" && local == captureElem {
				if pendingAddr != nil {
					pendingAddr.Email = strings.TrimSpace(buf.String())
					if !pendingAddr.Empty() {
						e.commitAddress(&msg, addrCtx, *pendingAddr)
					}
					pendingAddr = nil
				} else {
					assign(strings.TrimPrefix(local, opfFieldPrefix), buf.String())
				}
				captureElem = ""
				buf.Reset()
			}
			if addrCtx != ctxNone && local == ctxElem {
				addrCtx = ctxNone
				ctxElem = ""
			}
		}
	}

	if msg.Date == "" {
		msg.Date = recvTime
	}
	if msg.Body == "" {
		msg.Body = htmlBody
	}
	msg.Body = flattenBody(msg.Body)

	if len(msg.Recipients) == 0 && displayTo != "" {
		msg.Recipients = parseDisplayList(displayTo)
	}

	return msg, nil
}

func (e *Extractor) commitAddress(msg *model.NormalizedMessage, ctx addrContext, addr model.Address) {
	switch ctx {
	case ctxFrom:
		if msg.Sender.Empty() {
			msg.Sender = addr
		}
	case ctxTo:
		msg.Recipients = append(msg.Recipients, addr)
	}
}

func addressFromAttrs(attrs []xml.Attr) model.Address {
	var addr model.Address
	for _, a := range attrs {
		switch a.Name.Local {
		case attrAddress:
			addr.Email = strings.TrimSpace(a.Value)
		case attrName:
			addr.Name = strings.TrimSpace(a.Value)
		}
	}
	return addr
}

var collapseSpace = regexp.MustCompile(`[ \t]+`)

// flattenBody converts an HTML body to plain text. Plain bodies pass
// through untouched.
func flattenBody(body string) string {
	if body == "" || !strings.HasPrefix(strings.TrimSpace(body), "<") {
		return body
	}
	text, err := html2text.FromString(body, html2text.Options{TextOnly: true})
	if err != nil {
		// Crude fallback: strip tags and collapse runs of whitespace.
		text = regexp.MustCompile(`<[^>]+>`).ReplaceAllString(body, "")
		text = collapseSpace.ReplaceAllString(text, " ")
	}
	return strings.TrimSpace(text)
}

// parseDisplayList splits a "Name one; Name two" display string into
// recipient pairs. Items containing an @ are treated as bare addresses.
func parseDisplayList(display string) []model.Address {
	var out []model.Address
	for _, part := range strings.Split(display, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "@") {
			out = append(out, model.Address{Email: part})
		} else {
			out = append(out, model.Address{Name: part})
		}
	}
	return out
}
