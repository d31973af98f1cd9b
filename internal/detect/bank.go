package detect

import "sync"

// Bank is an ordered, immutable collection of signals.
type Bank struct {
	signals []Signal
}

// NewBank creates a Bank holding a copy of signals in the given order.
func NewBank(signals []Signal) *Bank {
	return &Bank{signals: append([]Signal(nil), signals...)}
}

// Len returns the number of signals.
func (b *Bank) Len() int {
	return len(b.signals)
}

// Signals returns a copy of the signals in bank order.
func (b *Bank) Signals() []Signal {
	return append([]Signal(nil), b.signals...)
}

// Names returns the signal names in bank order.
func (b *Bank) Names() []string {
	names := make([]string, len(b.signals))
	for i, s := range b.signals {
		names[i] = s.Name
	}
	return names
}

// DefaultBank returns the Braintree signal bank. It is built on first use
// and shared afterwards.
var DefaultBank = sync.OnceValue(func() *Bank {
	return NewBank([]Signal{
		substring("braintree_keyword",
			"The word braintree appears anywhere in the page or its scripts.",
			"braintree"),
		all("client_token",
			"A client-token reference appears together with braintree.",
			"client-token", "braintree"),
		substring("braintree_api",
			"A braintree-api identifier is present.",
			"braintree-api"),
		substring("braintreegateway_domain",
			"The braintreegateway.com domain is referenced.",
			"braintreegateway.com"),
		substring("dropin_create",
			"The Drop-in UI is initialized with dropin.create.",
			"dropin.create"),
		all("sandbox_auth",
			"A sandbox tokenization key is used as an authorization value.",
			"authorization:", "sandbox_"),
		substring("data_braintree_attr",
			"Elements carry data-braintree attributes.",
			"data-braintree"),
		substring("braintree_client_obj",
			"The braintree.client object is used.",
			"braintree.client"),
		substring("hostedfields_create",
			"Hosted Fields are initialized with hostedFields.create.",
			"hostedfields.create"),
		pattern("transaction_id_pattern",
			"A string shaped like a Braintree token or transaction id.",
			`bt[0-9a-z]{24,}`),
		pattern("braintree_sdk_path",
			"A versioned client SDK script path.",
			`js/client/\d+_\d+/\w+\.js`),
		pattern("braintree_form_selector",
			"A .braintree-form CSS selector.",
			`\.braintree-form`),
	})
})
