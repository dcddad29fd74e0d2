package operation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"cashdesk/pkg/gateway"
)

// CarrierKind says who is physically handling the cash at the counter.
type CarrierKind int

const (
	// KindAccountHolder is the account holder in person.
	KindAccountHolder CarrierKind = iota
	// KindProxyAgent is a mandated third party acting for the holder.
	KindProxyAgent
	// KindOther is any other bearer (e.g., a company courier).
	KindOther
)

// String returns the wire representation of the kind.
func (k CarrierKind) String() string {
	switch k {
	case KindAccountHolder:
		return "account_holder"
	case KindProxyAgent:
		return "proxy_agent"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

var (
	// ErrCarrierIncomplete is returned when required carrier identity
	// fields are missing.
	ErrCarrierIncomplete = errors.New("operation: carrier identity incomplete")

	// ErrCarrierIDMismatch is returned when the ID document number typed by
	// the teller does not match the number on file for the account.
	ErrCarrierIDMismatch = errors.New("operation: carrier id does not match the number on file")
)

// Carrier is the identity of the person handling the cash, as captured by
// the teller. ReferenceIDNumber is the document number on file for the
// account; when set, the captured number must match it.
type Carrier struct {
	Kind         CarrierKind
	FullName     string
	IDDocType    string
	IDDocNumber  string
	IDIssueDate  string
	IDIssuePlace string

	ReferenceIDNumber string
}

// normalizeID strips all whitespace and uppercases, so "ab 123" and
// " AB123 " compare equal. Tellers copy these numbers off physical cards.
func normalizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// Validate checks that the captured identity is complete and, when a
// reference number is on file, that the document numbers match.
func (c Carrier) Validate() error {
	if strings.TrimSpace(c.FullName) == "" {
		return fmt.Errorf("%w: full name required", ErrCarrierIncomplete)
	}
	if strings.TrimSpace(c.IDDocNumber) == "" {
		return fmt.Errorf("%w: id document number required", ErrCarrierIncomplete)
	}
	if c.ReferenceIDNumber != "" {
		if normalizeID(c.IDDocNumber) != normalizeID(c.ReferenceIDNumber) {
			return ErrCarrierIDMismatch
		}
	}
	return nil
}

// record converts the carrier to its wire representation.
func (c Carrier) record() gateway.CarrierRecord {
	return gateway.CarrierRecord{
		Kind:         c.Kind.String(),
		FullName:     strings.TrimSpace(c.FullName),
		IDDocType:    c.IDDocType,
		IDDocNumber:  normalizeID(c.IDDocNumber),
		IDIssueDate:  c.IDIssueDate,
		IDIssuePlace: c.IDIssuePlace,
	}
}
