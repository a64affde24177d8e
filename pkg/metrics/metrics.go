/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Composition metrics
	Compositions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_compositions_total",
		Help: "Total number of message compositions grouped by result",
	}, []string{"result"})
	InlineImages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_inline_images_total",
		Help: "Total number of img elements processed grouped by kind (embedded, file, rejected)",
	}, []string{"kind"})

	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})
	MailSendDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "email_notifier_mail_send_duration_seconds",
		Help:    "Duration of SMTP transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"host"})
	SMTPConnections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_smtp_connections_total",
		Help: "Total number of SMTP connections opened",
	}, []string{"host"})

	// Dispatch queue metrics
	MailQueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_mail_queued_total",
		Help: "Total number of messages handed to the dispatch queue",
	}, []string{"host"})
	MailQueueDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_mail_queue_dropped_total",
		Help: "Total number of messages rejected because the queue was full or stopped",
	}, []string{"host"})

	// Audit metrics
	AuditEventsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_audit_events_total",
		Help: "Total number of delivery audit events written grouped by sink and result",
	}, []string{"sink", "result"})

	// API metrics
	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_api_rate_limited_total",
		Help: "Total number of API requests rejected by the rate limiter",
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(Compositions)
	prometheus.MustRegister(InlineImages)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(MailSendDuration)
	prometheus.MustRegister(SMTPConnections)
	prometheus.MustRegister(MailQueued)
	prometheus.MustRegister(MailQueueDropped)
	prometheus.MustRegister(AuditEventsWritten)
	prometheus.MustRegister(RateLimited)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
