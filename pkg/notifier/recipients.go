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
	"fmt"
	"strings"
	"unicode"
)

// Renderer renders a template string with parameters.
type Renderer interface {
	Render(tmpl string, params map[string]any) (string, error)
}

// ResolveRecipients renders raw and splits the result on commas, semicolons
// and whitespace. Empty tokens are dropped; order and duplicates are kept.
// Addresses are not validated here.
func ResolveRecipients(engine Renderer, raw string, params map[string]any) ([]string, error) {
	rendered, err := engine.Render(raw, params)
	if err != nil {
		return nil, fmt.Errorf("%w: field to: %w", ErrTemplate, err)
	}
	if rendered == "" {
		return nil, fmt.Errorf("%w: recipient list is empty", ErrInvalidRecipient)
	}

	recipients := strings.FieldsFunc(rendered, isRecipientSeparator)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: no address in %q", ErrInvalidRecipient, rendered)
	}
	return recipients, nil
}

func isRecipientSeparator(r rune) bool {
	return r == ',' || r == ';' || unicode.IsSpace(r)
}

// NormalizeBody replaces every newline with a <br> tag.
func NormalizeBody(body string) string {
	return strings.ReplaceAll(body, "\n", "<br>")
}
