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

package templating

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/telekom/email-notifier/pkg/utils"
)

// maxIncludeDepth bounds nested include calls.
const maxIncludeDepth = 16

// ErrorKind classifies template failures.
type ErrorKind string

const (
	KindSyntax          ErrorKind = "syntax"
	KindUnknownFunction ErrorKind = "unknown_function"
	KindExecution       ErrorKind = "execution"
)

// Error is returned by Render for any template failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("template %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Engine renders template strings against a parameter map. It is built once
// at startup and is safe for concurrent use.
type Engine struct {
	root  string
	funcs template.FuncMap
}

// NewEngine creates an engine whose include function is confined to root.
// root must exist; it is canonicalized once here.
func NewEngine(root string) (*Engine, error) {
	canonical, err := utils.CanonicalDir(root)
	if err != nil {
		return nil, fmt.Errorf("invalid templates root: %w", err)
	}
	e := &Engine{root: canonical}
	e.funcs = e.buildFuncMap()
	return e, nil
}

// Root returns the canonical templates directory.
func (e *Engine) Root() string {
	return e.root
}

// Render interpolates tmpl with params. Missing map keys are errors.
func (e *Engine) Render(tmpl string, params map[string]any) (string, error) {
	return e.render("inline", tmpl, params, 0)
}

func (e *Engine) render(name, text string, data any, depth int) (string, error) {
	t, err := template.New(name).
		Option("missingkey=error").
		Funcs(e.funcsAt(depth)).
		Parse(text)
	if err != nil {
		return "", classifyParseError(err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		var tmplErr *Error
		if errors.As(err, &tmplErr) {
			return "", tmplErr
		}
		return "", &Error{Kind: KindExecution, Err: err}
	}
	return buf.String(), nil
}

// buildFuncMap returns the allow-listed functions. Sprig's hermetic set
// excludes environment access and non-repeatable functions.
func (e *Engine) buildFuncMap() template.FuncMap {
	funcMap := sprig.HermeticTxtFuncMap()
	funcMap["nl2br"] = func(s string) string {
		return strings.ReplaceAll(s, "\n", "<br>")
	}
	return funcMap
}

// funcsAt binds include to the current nesting depth.
func (e *Engine) funcsAt(depth int) template.FuncMap {
	funcs := make(template.FuncMap, len(e.funcs))
	for k, v := range e.funcs {
		funcs[k] = v
	}
	funcs["include"] = func(name string, data ...any) (string, error) {
		return e.include(name, depth+1, data...)
	}
	return funcs
}

func (e *Engine) include(name string, depth int, data ...any) (string, error) {
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("include %q: nesting deeper than %d", name, maxIncludeDepth)
	}
	path, ok, err := utils.ResolveWithin(e.root, name)
	if err != nil {
		return "", fmt.Errorf("include %q: %w", name, err)
	}
	if !ok {
		return "", fmt.Errorf("include %q: path escapes templates root", name)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("include %q: %w", name, err)
	}

	var ctx any
	if len(data) > 0 {
		ctx = data[0]
	}
	return e.render(name, string(content), ctx, depth)
}

func classifyParseError(err error) *Error {
	msg := err.Error()
	if strings.Contains(msg, "function ") && strings.Contains(msg, " not defined") {
		return &Error{Kind: KindUnknownFunction, Err: err}
	}
	return &Error{Kind: KindSyntax, Err: err}
}
