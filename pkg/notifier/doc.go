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


// Package notifier composes notification emails from templates and hands
// them to an SMTP transport.
//
// Composition runs synchronously on the caller's goroutine:
//
//  1. the "to" template is rendered and split into recipients
//  2. from, subject and body are rendered with the same parameters
//  3. newlines in the body become <br>
//  4. local img sources are turned into inline attachments referenced by cid:
//
// Every composition error is reported before the transport is touched. The
// transport result is delivered through a channel that completes exactly once.
package notifier
