package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/gatewayscan/internal/model"
)

// Extraction holds everything pulled out of a root document.
type Extraction struct {
	// PaymentPages are absolute URLs of anchors whose href contains a
	// payment keyword, deduplicated in first-seen order.
	PaymentPages []string

	// ScriptSources are absolute URLs of external scripts, deduplicated.
	ScriptSources []string

	// InlineScripts are the bodies of <script> elements without src that
	// have non-whitespace text.
	InlineScripts []string

	// FormMarkup is the serialized markup of every <form> and <input>
	// element in document order. Inputs nested in a form appear twice.
	FormMarkup string
}

// ExtractOptions controls link selection.
type ExtractOptions struct {
	// Keywords are matched case-insensitively against raw href values.
	Keywords []string

	// SameSiteOnly drops payment pages whose host differs from the base URL.
	SameSiteOnly bool
}

// Extractor parses HTML documents with goquery.
type Extractor struct {
	keywords     []string
	sameSiteOnly bool
}

// NewExtractor creates an Extractor. Keywords are lower-cased once here.
func NewExtractor(opts ExtractOptions) *Extractor {
	kw := make([]string, 0, len(opts.Keywords))
	for _, k := range opts.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}
	return &Extractor{keywords: kw, sameSiteOnly: opts.SameSiteOnly}
}

// Extract parses body and resolves every discovered URL against baseURL.
// Invalid or unresolvable URLs are skipped silently.
func (e *Extractor) Extract(baseURL, body string) (*Extraction, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	result := &Extraction{
		PaymentPages:  []string{},
		ScriptSources: []string{},
		InlineScripts: []string{},
	}

	pages := newOrderedSet()
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !e.isPaymentLink(href) {
			return
		}
		abs, ok := resolve(base, href)
		if !ok {
			return
		}
		if e.sameSiteOnly && !sameHost(base, abs) {
			return
		}
		pages.add(abs)
	})
	result.PaymentPages = pages.items

	sources := newOrderedSet()
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			if abs, ok := resolve(base, src); ok {
				sources.add(abs)
			}
			return
		}
		if text := s.Text(); strings.TrimSpace(text) != "" {
			result.InlineScripts = append(result.InlineScripts, text)
		}
	})
	result.ScriptSources = sources.items

	var forms strings.Builder
	doc.Find("form, input").Each(func(_ int, s *goquery.Selection) {
		markup, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		forms.WriteString(markup)
	})
	result.FormMarkup = forms.String()

	return result, nil
}

func (e *Extractor) isPaymentLink(href string) bool {
	lower := strings.ToLower(href)
	for _, k := range e.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// resolve turns ref into an absolute URL without fragment.
// It returns false if the result lacks a scheme or host.
func resolve(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	u, err := base.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	abs := u.String()
	if !model.IsValidURL(abs) {
		return "", false
	}
	return abs, true
}

func sameHost(base *url.URL, abs string) bool {
	u, err := url.Parse(abs)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimPrefix(u.Hostname(), "www."), strings.TrimPrefix(base.Hostname(), "www."))
}

// orderedSet deduplicates strings while keeping insertion order.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
