package config

import "time"

// ProbeSection configures the liveness probe.
type ProbeSection struct {
	Enabled         *bool    `yaml:"enabled,omitempty"`
	URL             *string  `yaml:"url,omitempty"`
	CooldownSeconds *float64 `yaml:"cooldownSeconds,omitempty"`
}

// NotifySection configures Telegram notifications for FOUND results.
type NotifySection struct {
	TelegramToken *string `yaml:"telegramToken,omitempty"`
	ChatID        *string `yaml:"chatId,omitempty"`
	APIBase       *string `yaml:"apiBase,omitempty"`
}

// File represents the structure of the gatewayscan YAML configuration file.
// Every field is optional; unset fields keep the value already present in
// the Config the file is applied to.
//
// Design decision: fields are pointers so that an explicit zero (rate 0,
// confirm false) can be told apart from an omitted key.
type File struct {
	MinSignalHits             *int                  `yaml:"minSignalHits,omitempty"`
	RequestTimeoutSeconds     *float64              `yaml:"requestTimeoutSeconds,omitempty"`
	RootRequestTimeoutSeconds *float64              `yaml:"rootRequestTimeoutSeconds,omitempty"`
	RetryAttempts             *int                  `yaml:"retryAttempts,omitempty"`
	RetryDelaySeconds         *float64              `yaml:"retryDelaySeconds,omitempty"`
	SubpageConcurrencyLimit   *int                  `yaml:"subpageConcurrencyLimit,omitempty"`
	ClientIdentityString      *string               `yaml:"clientIdentityString,omitempty"`
	ProxyEnabled              *bool                 `yaml:"proxyEnabled,omitempty"`
	ProxyList                 []string              `yaml:"proxyList,omitempty"`
	PaymentLinkKeywords       []string              `yaml:"paymentLinkKeywords,omitempty"`
	InterCandidateDelayBounds []float64             `yaml:"interCandidateDelayBounds,omitempty,flow"`
	MaxBodySizeBytes          *int64                `yaml:"maxBodySizeBytes,omitempty"`
	RequestsPerSecond         *float64              `yaml:"requestsPerSecond,omitempty"`
	Headers                   map[string]string     `yaml:"headers,omitempty"`
	Sites                     map[string]SiteConfig `yaml:"sites,omitempty"`
	SameSiteOnly              *bool                 `yaml:"sameSiteOnly,omitempty"`
	Probe                     *ProbeSection         `yaml:"probe,omitempty"`
	Notify                    *NotifySection        `yaml:"notify,omitempty"`
	LedgerPath                *string               `yaml:"ledgerPath,omitempty"`
	RenderJavaScript          *bool                 `yaml:"renderJavaScript,omitempty"`
	ConfirmFound              *bool                 `yaml:"confirmFound,omitempty"`
}

// DefaultFile returns a File with every field set to its default value.
// It is the document persisted when no usable configuration file exists.
func DefaultFile() *File {
	c := NewConfig()
	return &File{
		MinSignalHits:             ptr(c.MinSignalHits),
		RequestTimeoutSeconds:     ptr(c.RequestTimeout.Seconds()),
		RootRequestTimeoutSeconds: ptr(c.RootRequestTimeout.Seconds()),
		RetryAttempts:             ptr(c.RetryAttempts),
		RetryDelaySeconds:         ptr(c.RetryDelay.Seconds()),
		SubpageConcurrencyLimit:   ptr(c.SubpageConcurrency),
		ClientIdentityString:      ptr(c.UserAgent),
		ProxyEnabled:              ptr(c.ProxyEnabled),
		ProxyList:                 []string{},
		PaymentLinkKeywords:       c.PaymentLinkKeywords,
		InterCandidateDelayBounds: []float64{c.MinDelay.Seconds(), c.MaxDelay.Seconds()},
		MaxBodySizeBytes:          ptr(c.MaxBodySize),
		RequestsPerSecond:         ptr(c.RequestsPerSecond),
		SameSiteOnly:              ptr(c.SameSiteOnly),
		Probe: &ProbeSection{
			Enabled:         ptr(c.ProbeEnabled),
			URL:             ptr(c.ProbeURL),
			CooldownSeconds: ptr(c.Cooldown.Seconds()),
		},
		Notify: &NotifySection{
			TelegramToken: ptr(""),
			ChatID:        ptr(""),
			APIBase:       ptr(c.TelegramAPIBase),
		},
		LedgerPath:       ptr(c.LedgerPath),
		RenderJavaScript: ptr(c.RenderJavaScript),
		ConfirmFound:     ptr(c.ConfirmFound),
	}
}

// ApplyTo copies every field set in the file onto cfg.
// A nil receiver is a no-op.
func (f *File) ApplyTo(cfg *Config) {
	if f == nil {
		return
	}
	setIf(&cfg.MinSignalHits, f.MinSignalHits)
	setSeconds(&cfg.RequestTimeout, f.RequestTimeoutSeconds)
	setSeconds(&cfg.RootRequestTimeout, f.RootRequestTimeoutSeconds)
	setIf(&cfg.RetryAttempts, f.RetryAttempts)
	setSeconds(&cfg.RetryDelay, f.RetryDelaySeconds)
	setIf(&cfg.SubpageConcurrency, f.SubpageConcurrencyLimit)
	setIf(&cfg.UserAgent, f.ClientIdentityString)
	setIf(&cfg.ProxyEnabled, f.ProxyEnabled)
	if f.ProxyList != nil {
		cfg.Proxies = append([]string(nil), f.ProxyList...)
	}
	if len(f.PaymentLinkKeywords) > 0 {
		cfg.PaymentLinkKeywords = append([]string(nil), f.PaymentLinkKeywords...)
	}
	if len(f.InterCandidateDelayBounds) == 2 {
		cfg.MinDelay = seconds(f.InterCandidateDelayBounds[0])
		cfg.MaxDelay = seconds(f.InterCandidateDelayBounds[1])
	}
	setIf(&cfg.MaxBodySize, f.MaxBodySizeBytes)
	setIf(&cfg.RequestsPerSecond, f.RequestsPerSecond)
	if len(f.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(f.Headers))
		}
		for k, v := range f.Headers {
			cfg.Headers[k] = v
		}
	}
	for host, site := range f.Sites {
		cfg.mergeSite(host, site)
	}
	setIf(&cfg.SameSiteOnly, f.SameSiteOnly)
	if f.Probe != nil {
		setIf(&cfg.ProbeEnabled, f.Probe.Enabled)
		setIf(&cfg.ProbeURL, f.Probe.URL)
		setSeconds(&cfg.Cooldown, f.Probe.CooldownSeconds)
	}
	if f.Notify != nil {
		setIf(&cfg.TelegramToken, f.Notify.TelegramToken)
		setIf(&cfg.TelegramChatID, f.Notify.ChatID)
		setIf(&cfg.TelegramAPIBase, f.Notify.APIBase)
	}
	setIf(&cfg.LedgerPath, f.LedgerPath)
	setIf(&cfg.RenderJavaScript, f.RenderJavaScript)
	setIf(&cfg.ConfirmFound, f.ConfirmFound)
}

func ptr[T any](v T) *T { return &v }

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setSeconds(dst *time.Duration, src *float64) {
	if src != nil {
		*dst = seconds(*src)
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
