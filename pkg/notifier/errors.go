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

import "errors"

var (
	// ErrTemplate wraps any failure to render one of the message fields.
	ErrTemplate = errors.New("template error")
	// ErrInvalidRecipient is returned when the rendered recipient list is empty.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrAttachmentDecode is returned for malformed base64 image data.
	ErrAttachmentDecode = errors.New("attachment decode error")
	// ErrAttachmentRead is returned when a local image cannot be read.
	ErrAttachmentRead = errors.New("attachment read error")
	// ErrPathContainment marks an image path outside the templates directory.
	// It is logged, never returned: the image is dropped and the send goes on.
	ErrPathContainment = errors.New("image path escapes templates directory")
)
