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
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

type renderedAttachment struct {
	ContentID   string `json:"contentId" yaml:"contentId"`
	ContentType string `json:"contentType" yaml:"contentType"`
	Size        int    `json:"size" yaml:"size"`
}

type renderedMessage struct {
	From        string               `json:"from" yaml:"from"`
	To          []string             `json:"to" yaml:"to"`
	Subject     string               `json:"subject" yaml:"subject"`
	HTML        string               `json:"html" yaml:"html"`
	Attachments []renderedAttachment `json:"attachments" yaml:"attachments"`
}

func NewRenderCommand() *cobra.Command {
	var (
		opts         requestOptions
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Compose a notification and print it without sending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			n, err := newNotifier(rt.cfg, nil, nil, rt.Logger().Sugar())
			if err != nil {
				return err
			}
			req, err := opts.request(n)
			if err != nil {
				return err
			}
			msg, err := n.Compose(req)
			if err != nil {
				return err
			}

			out := renderedMessage{
				From:        msg.From,
				To:          msg.To,
				Subject:     msg.Subject,
				HTML:        msg.HTML,
				Attachments: make([]renderedAttachment, 0, len(msg.Attachments)),
			}
			for _, a := range msg.Attachments {
				out.Attachments = append(out.Attachments, renderedAttachment{
					ContentID:   a.ContentID,
					ContentType: a.ContentType,
					Size:        len(a.Data),
				})
			}

			writer := rt.Writer()
			switch outputFormat {
			case "json":
				encoder := json.NewEncoder(writer)
				encoder.SetIndent("", "  ")
				return encoder.Encode(out)
			case "yaml":
				data, err := yaml.Marshal(out)
				if err != nil {
					return fmt.Errorf("failed to marshal to YAML: %w", err)
				}
				_, _ = fmt.Fprint(writer, string(data))
				return nil
			case "":
				_, _ = fmt.Fprintf(writer, "From: %s\nTo: %s\nSubject: %s\n\n%s\n",
					out.From, strings.Join(out.To, ", "), out.Subject, out.HTML)
				for _, a := range out.Attachments {
					_, _ = fmt.Fprintf(writer, "attachment cid:%s %s (%d bytes)\n", a.ContentID, a.ContentType, a.Size)
				}
				return nil
			default:
				return fmt.Errorf("unsupported output format %q", outputFormat)
			}
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: json, yaml")

	return cmd
}
