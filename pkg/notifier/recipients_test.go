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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/email-notifier/pkg/templating"
)

func newTestEngine(t *testing.T) *templating.Engine {
	t.Helper()
	engine, err := templating.NewEngine("testdata/templates")
	require.NoError(t, err)
	return engine
}

func TestResolveRecipients(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name     string
		raw      string
		params   map[string]any
		expected []string
	}{
		{name: "single", raw: "to@mail.com", expected: []string{"to@mail.com"}},
		{name: "comma", raw: "to@mail.com,to2@mail.com", expected: []string{"to@mail.com", "to2@mail.com"}},
		{name: "semicolon", raw: "to@mail.com;to2@mail.com", expected: []string{"to@mail.com", "to2@mail.com"}},
		{name: "whitespace runs", raw: "to@mail.com \t\n to2@mail.com", expected: []string{"to@mail.com", "to2@mail.com"}},
		{name: "mixed with empty tokens", raw: ",to@mail.com;; ,to2@mail.com,", expected: []string{"to@mail.com", "to2@mail.com"}},
		{name: "duplicates kept in order", raw: "b@mail.com,a@mail.com,b@mail.com", expected: []string{"b@mail.com", "a@mail.com", "b@mail.com"}},
		{name: "not validated", raw: "not-an-address", expected: []string{"not-an-address"}},
		{
			name: "rendered from parameters",
			raw:  `{{ index .entity.metadata "emails" }}`,
			params: map[string]any{
				"entity": map[string]any{
					"metadata": map[string]any{"emails": "john.doe@gmail.com,jane.doe@gmail.com"},
				},
			},
			expected: []string{"john.doe@gmail.com", "jane.doe@gmail.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipients, err := ResolveRecipients(engine, tt.raw, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, recipients)
		})
	}
}

func TestResolveRecipients_Errors(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name     string
		raw      string
		params   map[string]any
		expected error
	}{
		{name: "empty", raw: "", expected: ErrInvalidRecipient},
		{name: "renders empty", raw: `{{ .to }}`, params: map[string]any{"to": ""}, expected: ErrInvalidRecipient},
		{name: "only separators", raw: " ,; ", expected: ErrInvalidRecipient},
		{name: "missing parameter", raw: `{{ .entity.email }}`, params: map[string]any{}, expected: ErrTemplate},
		{name: "syntax error", raw: `{{ .to`, expected: ErrTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveRecipients(engine, tt.raw, tt.params)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestResolveRecipients_TemplateErrorKeepsKind(t *testing.T) {
	_, err := ResolveRecipients(newTestEngine(t), `{{ shell "ls" }}`, nil)
	require.ErrorIs(t, err, ErrTemplate)

	var tmplErr *templating.Error
	require.True(t, errors.As(err, &tmplErr))
	assert.Equal(t, templating.KindUnknownFunction, tmplErr.Kind)
}

func TestNormalizeBody(t *testing.T) {
	assert.Equal(t, "A test <br> with <br> new <br> line<br>", NormalizeBody("A test \n with \n new \n line\n"))
	assert.Equal(t, "no newline", NormalizeBody("no newline"))
	assert.Equal(t, `<img alt="a<br>b">`, NormalizeBody("<img alt=\"a\nb\">"))
}
