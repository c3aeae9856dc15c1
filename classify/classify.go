// Package classify scores converted messages into business categories
// using keyword and pattern matching, and aggregates per-vendor patterns
// for classifier training data.
package classify

import (
	"regexp"
	"strings"
)

// Category is the business classification of one message.
type Category string

const (
	CategoryInvoice       Category = "INVOICE"
	CategoryShipping      Category = "SHIPPING"
	CategoryPurchaseOrder Category = "PURCHASE_ORDER"
	CategoryOther         Category = "OTHER"
)

// categoryPriority breaks ties: invoices matter most.
var categoryPriority = []Category{
	CategoryInvoice, CategoryShipping, CategoryPurchaseOrder, CategoryOther,
}

// Scoring weights. Attachment names are the strongest signal, subject
// patterns next, loose keywords weakest.
const (
	attachmentWeight = 3
	subjectWeight    = 2
	keywordWeight    = 1
)

var (
	invoiceKeywords = []string{
		"invoice", "bill", "statement", "payment due",
		"amount due", "remit payment", "balance due", "amount owed",
		"invoice attached", "billing", "payment terms",
	}
	shippingKeywords = []string{
		"shipped", "tracking", "delivery", "carrier",
		"tracking number", "expected delivery", "in transit",
		"has been shipped", "order shipped", "shipment confirmation",
		"ups", "fedex", "usps", "dhl",
	}
	purchaseOrderKeywords = []string{
		"purchase order", "po confirmation", "order confirmed",
		"order accepted", "po #", "order acknowledgment",
		"order received", "order processed", "confirmation number",
	}
	falsePositiveKeywords = []string{
		"newsletter", "promotion", "sale", "marketing",
		"unsubscribe", "catalog", "new products", "follow us",
		"discount", "special offer", "limited time",
	}

	invoiceSubjectPatterns = compileAll(
		`invoice\s*#?\s*\d+`,
		`bill\s*#?\s*\d+`,
		`statement\s*#?\s*\d+`,
		`inv\s*[-_]?\s*\d+`,
	)
	invoiceAttachmentPatterns = compileAll(
		`inv[_\-]?\d+\.pdf`,
		`invoice.*\.pdf`,
		`bill.*\.pdf`,
		`statement.*\.pdf`,
	)
	shippingAttachmentPatterns = compileAll(
		`tracking.*\.pdf`,
		`shipment.*\.pdf`,
		`delivery.*\.pdf`,
	)
	purchaseOrderAttachmentPatterns = compileAll(
		`po[_\-]?\d+\.pdf`,
		`purchase.*order.*\.pdf`,
		`confirmation.*\.pdf`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// Classify scores one message. Inputs are matched case-insensitively.
func Classify(subject, body string, attachments []string) Category {
	subject = strings.ToLower(subject)
	content := subject + " " + strings.ToLower(body)

	scores := map[Category]int{}

	for _, name := range attachments {
		name = strings.ToLower(name)
		scores[CategoryInvoice] += attachmentWeight * countMatches(invoiceAttachmentPatterns, name)
		scores[CategoryShipping] += attachmentWeight * countMatches(shippingAttachmentPatterns, name)
		scores[CategoryPurchaseOrder] += attachmentWeight * countMatches(purchaseOrderAttachmentPatterns, name)
	}

	scores[CategoryInvoice] += subjectWeight * countMatches(invoiceSubjectPatterns, subject)

	scores[CategoryInvoice] += keywordWeight * countKeywords(invoiceKeywords, content)
	scores[CategoryShipping] += keywordWeight * countKeywords(shippingKeywords, content)
	scores[CategoryPurchaseOrder] += keywordWeight * countKeywords(purchaseOrderKeywords, content)
	scores[CategoryOther] += keywordWeight * countKeywords(falsePositiveKeywords, content)

	best := 0
	for _, score := range scores {
		if score > best {
			best = score
		}
	}
	if best == 0 {
		return CategoryOther
	}
	for _, cat := range categoryPriority {
		if scores[cat] == best {
			return cat
		}
	}
	return CategoryOther
}

// Keywords returns the matched keywords for a classified message, capped
// at limit, for the training data output.
func Keywords(cat Category, subject, body string, limit int) []string {
	content := strings.ToLower(subject + " " + body)

	var pool []string
	switch cat {
	case CategoryInvoice:
		pool = invoiceKeywords
	case CategoryShipping:
		pool = shippingKeywords
	case CategoryPurchaseOrder:
		pool = purchaseOrderKeywords
	default:
		pool = append(append(append([]string{}, invoiceKeywords...), shippingKeywords...), purchaseOrderKeywords...)
	}

	var matched []string
	for _, kw := range pool {
		if strings.Contains(content, kw) {
			matched = append(matched, kw)
			if len(matched) == limit {
				break
			}
		}
	}
	return matched
}

func countMatches(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, re := range patterns {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

func countKeywords(keywords []string, content string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(content, kw) {
			n++
		}
	}
	return n
}
