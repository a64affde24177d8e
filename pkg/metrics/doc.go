// Package metrics defines Prometheus metrics for the email notifier, covering
// message composition, inline image extraction, SMTP delivery and the
// dispatch queue.
package metrics
