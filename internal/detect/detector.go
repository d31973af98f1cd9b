package detect

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/gatewayscan/internal/model"
)

// Detection is the outcome of evaluating a bank against one corpus.
// len(Matched) always equals Hits.
type Detection struct {
	// Hits is the number of matched signals.
	Hits int

	// Matched holds the names of matched signals in bank order.
	Matched []string
}

// Detector evaluates a Bank. It is safe for concurrent use.
type Detector struct {
	bank *Bank
}

// NewDetector creates a Detector for bank. A nil bank selects DefaultBank.
func NewDetector(bank *Bank) *Detector {
	if bank == nil {
		bank = DefaultBank()
	}
	return &Detector{bank: bank}
}

// Bank returns the bank evaluated by the detector.
func (d *Detector) Bank() *Bank {
	return d.bank
}

// Detect lower-cases text once and evaluates every signal against it.
func (d *Detector) Detect(text string) Detection {
	lowered := lower(text)
	matched := make([]string, 0, len(d.bank.signals))
	for _, s := range d.bank.signals {
		if s.Match(lowered) {
			matched = append(matched, s.Name)
		}
	}
	return Detection{Hits: len(matched), Matched: matched}
}

// Classify applies the threshold rule: FOUND iff hits >= threshold.
func Classify(hits, threshold int) model.Status {
	if hits >= threshold {
		return model.StatusFound
	}
	return model.StatusNotFound
}

// confirmationTerms are checked by Confirm; any one is enough.
var confirmationTerms = []string{"paypal", "braintreegateway.com"}

// Confirm runs the secondary confirmation check on a freshly fetched root
// page. It reports whether any confirmation term occurs. The outcome is
// advisory and is never used for classification.
func Confirm(text string) bool {
	lowered := lower(text)
	for _, term := range confirmationTerms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// lower applies Unicode lower-casing. A Caser is not safe for concurrent
// use, so one is created per call.
func lower(text string) string {
	return cases.Lower(language.Und).String(text)
}
