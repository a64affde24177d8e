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

package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/telekom/email-notifier/pkg/audit"
	"github.com/telekom/email-notifier/pkg/config"
	"github.com/telekom/email-notifier/pkg/mail"
	"github.com/telekom/email-notifier/pkg/notifier"
	"github.com/telekom/email-notifier/pkg/templating"
)

func newEngine(cfg config.Notifier) (*templating.Engine, error) {
	root, err := cfg.ResolvedTemplatesPath()
	if err != nil {
		return nil, err
	}
	return templating.NewEngine(root)
}

func newPool(cfg config.Delivery, log *zap.SugaredLogger) *mail.Pool {
	idle, err := config.ParseDuration("delivery.idleTimeout", cfg.IdleTimeout, 0)
	if err != nil {
		log.Warn(err)
	}
	send, err := config.ParseDuration("delivery.sendTimeout", cfg.SendTimeout, 0)
	if err != nil {
		log.Warn(err)
	}
	return mail.NewPool(log, mail.PoolOptions{IdleTimeout: idle, SendTimeout: send, LocalName: cfg.LocalName})
}

// newRecorder builds the audit recorder from the audit section. It returns a
// nil recorder when no sink is configured.
func newRecorder(cfg config.Audit, log *zap.Logger) (*audit.Recorder, error) {
	var sinks []audit.Sink
	if cfg.Log {
		sinks = append(sinks, audit.NewLogSink(log.Named("audit")))
	}
	if cfg.Kafka != nil {
		kafkaSink, err := audit.NewKafkaSink(*cfg.Kafka, log.Named("audit"))
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka audit sink: %w", err)
		}
		sinks = append(sinks, kafkaSink)
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return audit.NewRecorder(sinks[0], log.Sugar().Named("audit")), nil
	default:
		return audit.NewRecorder(audit.NewMultiSink(sinks...), log.Sugar().Named("audit")), nil
	}
}

func newNotifier(cfg *config.Config, transport mail.Transport, recorder *audit.Recorder, log *zap.SugaredLogger) (*notifier.Notifier, error) {
	engine, err := newEngine(cfg.Notifier)
	if err != nil {
		return nil, err
	}
	return notifier.New(cfg.Notifier, engine, transport, recorder, log), nil
}

// loadParams reads template parameters from a JSON or YAML file and applies
// key=value overrides on top.
func loadParams(path string, overrides map[string]string) (map[string]any, error) {
	params := map[string]any{}
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read parameters file %s: %w", path, err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse parameters file %s: %w", path, err)
		}
		for k, v := range raw {
			params[k] = normalizeValue(v)
		}
	}
	for k, v := range overrides {
		params[k] = v
	}
	return params, nil
}

// normalizeValue turns the map[interface{}]interface{} values produced by
// yaml.v2 into map[string]any so nested parameters behave like JSON input.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeValue(val)
		}
		return m
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeValue(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalizeValue(val)
		}
		return t
	default:
		return v
	}
}
