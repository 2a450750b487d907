// Package notifications delivers session and clip milestones via pluggable
// transports.
//
// ntfy posts a short human message to the configured topic URL; kafka
// publishes a JSON document keyed by the session base name. Both are optional
// and the service degrades to a no-op when neither is configured. Callers
// depend only on the Service interface.
package notifications
