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

package notifier

import (
	"strings"

	"github.com/telekom/email-notifier/pkg/config"
	"github.com/telekom/email-notifier/pkg/mail"
)

// BuildTransportConfig derives the SMTP settings for one send from the static
// notifier configuration.
func BuildTransportConfig(cfg config.Notifier) mail.TransportConfig {
	tc := mail.TransportConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		TrustAll: cfg.SSLTrustAll,
		Login:    mail.LoginDisabled,
		StartTLS: mail.StartTLSDisabled,
	}

	if cfg.Username != "" && cfg.Password != "" {
		tc.Username = cfg.Username
		tc.Password = cfg.Password
		tc.Login = mail.LoginRequired
	}
	if cfg.SSLKeyStore != "" {
		tc.KeyStore = cfg.SSLKeyStore
	}
	if cfg.SSLKeyStorePassword != "" {
		tc.KeyStorePassword = cfg.SSLKeyStorePassword
	}
	if cfg.StartTLSEnabled {
		tc.StartTLS = mail.StartTLSRequired
	}

	methods := make([]string, 0, len(cfg.AuthMethods))
	for _, m := range cfg.AuthMethods {
		if m = strings.TrimSpace(m); m != "" {
			methods = append(methods, strings.ToUpper(m))
		}
	}
	tc.AuthMethods = strings.Join(methods, " ")
	return tc
}
