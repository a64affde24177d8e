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
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telekom/email-notifier/pkg/api"
	"github.com/telekom/email-notifier/pkg/client"
)

func NewPostCommand() *cobra.Command {
	var (
		server     string
		caFile     string
		insecure   bool
		timeout    time.Duration
		async      bool
		preview    bool
		paramsFile string
		params     map[string]string
		from       string
		to         string
		subject    string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Send a notification through a running email-notifier server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			c, err := client.New(
				client.WithServer(server),
				client.WithTLSConfig(caFile, insecure),
				client.WithTimeout(timeout),
			)
			if err != nil {
				return err
			}

			parameters, err := loadParams(paramsFile, params)
			if err != nil {
				return err
			}
			req := api.NotificationRequest{
				From:       from,
				To:         to,
				Subject:    subject,
				Parameters: parameters,
			}

			writer := rt.Writer()
			if preview {
				msg, err := c.Preview(cmd.Context(), req)
				if err != nil {
					return err
				}
				encoder := json.NewEncoder(writer)
				encoder.SetIndent("", "  ")
				return encoder.Encode(msg)
			}

			result, err := c.Send(cmd.Context(), req, async)
			if err != nil {
				return err
			}
			status := "sent"
			if result.Accepted {
				status = "accepted"
			}
			_, _ = fmt.Fprintf(writer, "Notification %s (request id %s)\n", status, result.RequestID)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", getEnvString("EMAIL_NOTIFIER_SERVER", "http://localhost:8080"), "Base URL of the email-notifier server")
	cmd.Flags().StringVar(&caFile, "ca-file", "", "CA bundle used to verify the server certificate")
	cmd.Flags().BoolVar(&insecure, "insecure-skip-tls-verify", false, "Skip server certificate verification")
	cmd.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "Request timeout")
	cmd.Flags().BoolVar(&async, "async", false, "Return once the server has queued the message")
	cmd.Flags().BoolVar(&preview, "preview", false, "Print the composed message instead of sending it")
	cmd.Flags().StringVarP(&paramsFile, "params", "p", "", "JSON or YAML file with template parameters")
	cmd.Flags().StringToStringVar(&params, "set", nil, "Template parameter overrides (key=value)")
	cmd.Flags().StringVar(&from, "from", "", "Override the server's sender template")
	cmd.Flags().StringVar(&to, "to", "", "Override the server's recipient template")
	cmd.Flags().StringVar(&subject, "subject", "", "Override the server's subject template")

	return cmd
}
