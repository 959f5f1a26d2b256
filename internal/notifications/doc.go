// Package notifications delivers postboxd events via ntfy.
//
// The default implementation publishes to the ntfy topic configured in
// config.toml and degrades to a no-op when no topic is set. Each event type
// can be switched off in the [notifications] section, and identical messages
// repeated inside the dedup window are sent once.
//
// Callers depend only on the Service interface.
package notifications
