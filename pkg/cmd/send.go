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

	"github.com/spf13/cobra"

	"github.com/telekom/email-notifier/pkg/notifier"
)

type requestOptions struct {
	paramsFile string
	params     map[string]string
	to         string
	subject    string
}

func (o *requestOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.paramsFile, "params", "p", "", "JSON or YAML file with template parameters")
	cmd.Flags().StringToStringVar(&o.params, "set", nil, "Template parameter overrides (key=value)")
	cmd.Flags().StringVar(&o.to, "to", "", "Override the configured recipient template")
	cmd.Flags().StringVar(&o.subject, "subject", "", "Override the configured subject template")
}

func (o *requestOptions) request(n *notifier.Notifier) (notifier.Request, error) {
	params, err := loadParams(o.paramsFile, o.params)
	if err != nil {
		return notifier.Request{}, err
	}
	req := n.Request(params)
	if o.to != "" {
		req.To = o.to
	}
	if o.subject != "" {
		req.Subject = o.subject
	}
	return req, nil
}

func NewSendCommand() *cobra.Command {
	var (
		opts   requestOptions
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Compose and send one notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			log := rt.Logger().Sugar()

			pool := newPool(rt.cfg.Delivery, log)
			defer func() { _ = pool.Close() }()

			recorder, err := newRecorder(rt.cfg.Audit, rt.Logger())
			if err != nil {
				return err
			}
			defer func() { _ = recorder.Close() }()

			n, err := newNotifier(rt.cfg, pool, recorder, log)
			if err != nil {
				return err
			}
			req, err := opts.request(n)
			if err != nil {
				return err
			}

			if dryRun {
				msg, err := n.Compose(req)
				if err != nil {
					return err
				}
				if _, err := msg.MIME().WriteTo(rt.Writer()); err != nil {
					return fmt.Errorf("failed to write message: %w", err)
				}
				return nil
			}

			if err := n.Send(cmd.Context(), req); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Notification sent")
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the composed MIME message instead of sending it")

	return cmd
}
