package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/gatewayscan/internal/model"
)

// Notifier sends text to a destination.
type Notifier interface {
	Notify(ctx context.Context, destination, text string) error
}

// Nop is a Notifier that discards every message.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, string, string) error {
	return nil
}

// FormatFound builds the message sent for a FOUND result.
func FormatFound(result *model.ScanResult) string {
	var sb strings.Builder
	sb.WriteString("✅ Braintree detected\n")
	sb.WriteString(fmt.Sprintf("URL: %s\n", result.URL))
	sb.WriteString(fmt.Sprintf("Hits: %d/%d\n", result.Hits, result.TotalSignals))
	sb.WriteString(fmt.Sprintf("Details: %s", strings.Join(result.MatchedSignals, ", ")))
	return sb.String()
}

// FormatBlocked builds the message sent when the control probe fails.
func FormatBlocked(probeURL string, cooldown time.Duration) string {
	return fmt.Sprintf("❌ Possible access block: probe of %s failed. Pausing for %s before resuming.", probeURL, cooldown)
}
