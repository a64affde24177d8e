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
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCompositionMetricsIncrement(t *testing.T) {
	Compositions.WithLabelValues("success").Inc()
	if v := testutil.ToFloat64(Compositions.WithLabelValues("success")); v < 1 {
		t.Fatalf("expected Compositions{success} >= 1, got %v", v)
	}

	InlineImages.WithLabelValues("rejected").Add(2)
	if v := testutil.ToFloat64(InlineImages.WithLabelValues("rejected")); v < 2 {
		t.Fatalf("expected InlineImages{rejected} >= 2, got %v", v)
	}
}

func TestMailMetricsIncrement(t *testing.T) {
	host := "test-mail"
	MailSendSuccess.WithLabelValues(host).Inc()
	if v := testutil.ToFloat64(MailSendSuccess.WithLabelValues(host)); v < 1 {
		t.Fatalf("expected MailSendSuccess >= 1, got %v", v)
	}
	MailSendFailure.WithLabelValues(host).Inc()
	if v := testutil.ToFloat64(MailSendFailure.WithLabelValues(host)); v < 1 {
		t.Fatalf("expected MailSendFailure >= 1, got %v", v)
	}
	MailQueueDropped.WithLabelValues(host).Inc()
	if v := testutil.ToFloat64(MailQueueDropped.WithLabelValues(host)); v < 1 {
		t.Fatalf("expected MailQueueDropped >= 1, got %v", v)
	}
}

func TestMetricsHandlerExposesRegisteredMetrics(t *testing.T) {
	Compositions.WithLabelValues("handler-test").Inc()

	w := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "email_notifier_compositions_total") {
		t.Fatalf("expected compositions metric in output")
	}
}
