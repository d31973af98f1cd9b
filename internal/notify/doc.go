// Package notify delivers best-effort messages about scan outcomes.
//
// The Notifier interface is the only thing the scheduler depends on.
// Telegram posts to the Bot API sendMessage method; Nop discards messages
// when no destination is configured. Callers log delivery failures and
// carry on.
package notify
