package endorse

import (
	"fmt"
	"time"

	"github.com/remedykit/bill-endorser/internal/billing"
)

// Payload is the endorsement record bound by a signature. It is built once
// per rule from the parsed bill and is immutable: signing returns a new
// SignedPayload instead of mutating the input.
type Payload struct {
	DocumentType    string         `json:"document_type"`
	BillNumber      string         `json:"bill_number"`
	CustomerName    string         `json:"customer_name"`
	TotalAmount     billing.Amount `json:"total_amount"`
	Currency        string         `json:"currency"`
	EndorsementDate string         `json:"endorsement_date"`
	EndorserID      string         `json:"endorser_id"`
	EndorsementText string         `json:"endorsement_text"`
}

// SignedPayload is a Payload with its base64 RSA signature attached.
type SignedPayload struct {
	Payload
	Signature string `json:"signature"`
}

// BuildPayload assembles an endorsement payload from a parsed bill record.
// Missing record fields carry the "N/A"/"Unknown" placeholders so the
// canonical serialization never varies in shape.
func BuildPayload(rec *billing.Record, endorsementText, endorserID string, now time.Time) Payload {
	return Payload{
		DocumentType:    orDefault(rec.DocumentType, "Unknown"),
		BillNumber:      orDefault(rec.BillNumber, "N/A"),
		CustomerName:    orDefault(rec.CustomerName, "N/A"),
		TotalAmount:     rec.TotalAmount,
		Currency:        orDefault(rec.Currency, "N/A"),
		EndorsementDate: now.Format("2006-01-02"),
		EndorserID:      endorserID,
		EndorsementText: endorsementText,
	}
}

// CanonicalBytes returns the byte serialization signatures are computed
// over: a fixed key-ordered rendering. The order and format must never
// change, signature verification depends on repeatability.
func (p Payload) CanonicalBytes() []byte {
	s := fmt.Sprintf(
		"document_type=%s\nbill_number=%s\ncustomer_name=%s\ntotal_amount=%s\n"+
			"currency=%s\nendorsement_date=%s\nendorser_id=%s\nendorsement_text=%s\n",
		p.DocumentType, p.BillNumber, p.CustomerName, p.TotalAmount.String(),
		p.Currency, p.EndorsementDate, p.EndorserID, p.EndorsementText,
	)
	return []byte(s)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
