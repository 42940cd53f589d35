package excel

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SaleFingerprint is a stable hash over a sale's identifying fields:
// matched product, date, quantity, unit price, payment method, customer.
func SaleFingerprint(tyreID int, date time.Time, qty int, unitPrice decimal.Decimal, method, customer string) string {
	return fingerprint("sale",
		fmt.Sprint(tyreID),
		date.Format("2006-01-02"),
		fmt.Sprint(qty),
		unitPrice.String(),
		NormalizeString(method),
		NormalizeString(customer),
	)
}

// PaymentFingerprint hashes a payment's identifying fields.
func PaymentFingerprint(date time.Time, customer, method string, amount decimal.Decimal) string {
	return fingerprint("payment",
		date.Format("2006-01-02"),
		NormalizeString(customer),
		NormalizeString(method),
		amount.String(),
	)
}

func fingerprint(kind string, fields ...string) string {
	h := sha256.New()
	io.WriteString(h, kind)
	io.WriteString(h, "\x00")
	io.WriteString(h, strings.Join(fields, "\x00"))
	return hex.EncodeToString(h.Sum(nil))
}

// DedupFilter tracks fingerprints within one import scope. Seed it with the
// fingerprints of records already committed for the same period, then run
// each incoming record through Seen. Duplicates are an expected, reported
// outcome, not an error.
type DedupFilter struct {
	seen    map[string]struct{}
	skipped int
}

func NewDedupFilter(committed []string) *DedupFilter {
	f := &DedupFilter{seen: make(map[string]struct{}, len(committed))}
	for _, fp := range committed {
		f.seen[fp] = struct{}{}
	}
	return f
}

// Seen reports whether the fingerprint was already present, recording it
// either way so in-batch duplicates are also caught.
func (f *DedupFilter) Seen(fp string) bool {
	if _, ok := f.seen[fp]; ok {
		f.skipped++
		return true
	}
	f.seen[fp] = struct{}{}
	return false
}

// Skipped returns the number of duplicates reported so far.
func (f *DedupFilter) Skipped() int {
	return f.skipped
}
