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
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/telekom/email-notifier/pkg/api"
	"github.com/telekom/email-notifier/pkg/mail"
)

const drainTimeout = 30 * time.Second

func NewServeCommand() *cobra.Command {
	var listenAddress string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP notification service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			log := rt.Logger().Sugar()
			if listenAddress != "" {
				rt.cfg.Server.ListenAddress = listenAddress
			}

			pool := newPool(rt.cfg.Delivery, log)
			dispatcher := mail.NewDispatcher(pool, log, rt.cfg.Delivery.Workers, rt.cfg.Delivery.QueueSize)
			dispatcher.Start()

			recorder, err := newRecorder(rt.cfg.Audit, rt.Logger())
			if err != nil {
				return err
			}

			n, err := newNotifier(rt.cfg, dispatcher, recorder, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := api.NewServer(rt.Logger(), rt.cfg.Server, n, rt.debug)
			serveErr := server.Listen(ctx)

			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			if err := dispatcher.Stop(drainCtx); err != nil {
				log.Warnw("Mail queue not drained", "pending", dispatcher.Length(), "error", err)
			}
			if err := pool.Close(); err != nil {
				log.Warnw("Failed to close SMTP connections", "error", err)
			}
			if err := recorder.Close(); err != nil {
				log.Warnw("Failed to close audit sink", "error", err)
			}
			return serveErr
		},
	}

	cmd.Flags().StringVar(&listenAddress, "listen-address", getEnvString("EMAIL_NOTIFIER_LISTEN_ADDRESS", ""),
		"Address the HTTP server binds to; overrides server.listenAddress")

	return cmd
}
