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
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/email-notifier/pkg/metrics"
	"github.com/telekom/email-notifier/pkg/system"
	"github.com/telekom/email-notifier/pkg/utils"
)

func newTestExtractor(t *testing.T) *ImageExtractor {
	t.Helper()
	base, err := utils.CanonicalDir("testdata/templates")
	require.NoError(t, err)
	x := NewImageExtractor(base, system.NewTestLogger())
	x.newID = func() string { return "ID" }
	return x
}

// sequentialIDs makes generated content IDs predictable.
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestExtract_NoImages(t *testing.T) {
	x := newTestExtractor(t)

	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "plain text", body: "template_sample.html", expected: "<html><head></head><body>template_sample.html</body></html>"},
		{name: "markup", body: "<p>hello <b>world</b></p>", expected: "<html><head></head><body><p>hello <b>world</b></p></body></html>"},
		{name: "img without src", body: `<img alt="x">`, expected: `<html><head></head><body><img alt="x"/></body></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, attachments, err := x.Extract(tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
			assert.Empty(t, attachments)

			again, _, err := x.Extract(out)
			require.NoError(t, err)
			assert.Equal(t, out, again)
		})
	}
}

func TestExtract_FileImage(t *testing.T) {
	x := newTestExtractor(t)
	expectedData, err := os.ReadFile("testdata/templates/images/email.svg")
	require.NoError(t, err)

	out, attachments, err := x.Extract(`<img src="images/email.svg" /><br><div>test</div>`)
	require.NoError(t, err)

	assert.Equal(t, `<html><head></head><body><img src="cid:ID"/><br/><div>test</div></body></html>`, out)
	require.Len(t, attachments, 1)
	assert.Equal(t, "<ID>", attachments[0].ContentID)
	assert.Equal(t, "image/svg+xml", attachments[0].ContentType)
	assert.Equal(t, DispositionInline, attachments[0].Disposition)
	assert.Equal(t, expectedData, attachments[0].Data)
}

func TestExtract_SourceIsTrimmed(t *testing.T) {
	x := newTestExtractor(t)

	_, attachments, err := x.Extract(`<img src="  images/email.svg  ">`)
	require.NoError(t, err)
	assert.Len(t, attachments, 1)
}

func TestExtract_PathOutsideTemplatesIsRejected(t *testing.T) {
	x := newTestExtractor(t)
	before := testutil.ToFloat64(metrics.InlineImages.WithLabelValues("rejected"))

	out, attachments, err := x.Extract(`<img src="../../../../../images/email.svg" /><br><div>test</div>`)
	require.NoError(t, err)

	assert.Empty(t, attachments)
	assert.Equal(t, `<html><head></head><body><img src="cid:ID"/><br/><div>test</div></body></html>`, out)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.InlineImages.WithLabelValues("rejected")))
}

func TestExtract_SymlinkOutsideTemplatesIsRejected(t *testing.T) {
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.png")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o600))

	base := t.TempDir()
	if err := os.Symlink(secret, filepath.Join(base, "link.png")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	canonical, err := utils.CanonicalDir(base)
	require.NoError(t, err)
	x := NewImageExtractor(canonical, system.NewTestLogger())

	_, attachments, err := x.Extract(`<img src="link.png">`)
	require.NoError(t, err)
	assert.Empty(t, attachments)
}

func TestExtract_EmbeddedImage(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0xff}

	tests := []struct {
		name    string
		encoded string
		want    []byte
	}{
		{name: "padded", encoded: base64.StdEncoding.EncodeToString(payload), want: payload},
		{name: "unpadded", encoded: base64.RawStdEncoding.EncodeToString(payload), want: payload},
		{name: "unpadded text", encoded: "aGVsbG8", want: []byte("hello")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := newTestExtractor(t)

			out, attachments, err := x.Extract(`<img src="data:image/png;base64,` + tt.encoded + `">`)
			require.NoError(t, err)

			require.Len(t, attachments, 1)
			assert.Equal(t, tt.want, attachments[0].Data)
			assert.Equal(t, "image/png", attachments[0].ContentType)
			assert.Equal(t, "<ID>", attachments[0].ContentID)
			assert.Equal(t, `<html><head></head><body><img src="cid:ID"/></body></html>`, out)
		})
	}
}

func TestExtract_EmbeddedImageErrors(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{name: "invalid characters", encoded: "!!not base64!!"},
		{name: "wrong padding", encoded: "aGVsbG8=="},
		{name: "truncated", encoded: "aGVsb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := newTestExtractor(t)

			_, attachments, err := x.Extract(`<img src="data:image/png;base64,` + tt.encoded + `">`)
			assert.ErrorIs(t, err, ErrAttachmentDecode)
			assert.Empty(t, attachments)
		})
	}
}

func TestExtract_MissingFile(t *testing.T) {
	x := newTestExtractor(t)

	_, _, err := x.Extract(`<img src="data:image/png;base64,AAAA"><img src="images/missing.png">`)
	assert.ErrorIs(t, err, ErrAttachmentRead)
}

func TestExtract_RemoteImagesAreUntouched(t *testing.T) {
	x := newTestExtractor(t)

	tests := []string{
		`<img src="https://example.com/logo.png"/>`,
		`<img src="http://example.com/logo.png"/>`,
		`<img src="httpsomething"/>`,
	}
	for _, body := range tests {
		t.Run(body, func(t *testing.T) {
			out, attachments, err := x.Extract(body)
			require.NoError(t, err)
			assert.Empty(t, attachments)
			assert.Equal(t, "<html><head></head><body>"+body+"</body></html>", out)
		})
	}
}

func TestExtract_EveryAttachmentReferencedOnce(t *testing.T) {
	x := newTestExtractor(t)
	x.newID = sequentialIDs()

	body := strings.Join([]string{
		`<img src="images/email.svg">`,
		`<img src="data:image/gif;base64,R0lGODlhAQABAAAAACw=">`,
		`<img src="https://example.com/remote.png">`,
		`<table><tr><td><img src="images/email.svg"></td></tr></table>`,
		`<img src="../../outside.png">`,
	}, "")

	out, attachments, err := x.Extract(body)
	require.NoError(t, err)
	require.Len(t, attachments, 3)

	for _, a := range attachments {
		assert.Equal(t, 1, strings.Count(out, `"cid:`+a.CID()+`"`), "attachment %s", a.ContentID)
	}
	// the rejected image keeps a cid reference without an attachment
	assert.Equal(t, len(attachments)+1, strings.Count(out, "cid:"))
	assert.Contains(t, out, "https://example.com/remote.png")
	assert.Equal(t, "image/gif", attachments[1].ContentType)
}

func TestExtractMimeType(t *testing.T) {
	tests := []struct {
		source   string
		expected string
	}{
		{source: "data:image/png;base64,AAAA", expected: "image/png"},
		{source: "data:IMAGE/JPEG;base64,AAAA", expected: "image/jpeg"},
		{source: "data:image/svg+xml;base64,AAAA", expected: "image/svg"},
		{source: "data:image/png;base64", expected: ""},
		{source: "data:;base64,AAAA", expected: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, extractMimeType(tt.source), tt.source)
	}
}

func TestContentTypeByFileName(t *testing.T) {
	assert.Equal(t, "image/png", contentTypeByFileName("images/logo.png"))
	assert.Equal(t, "image/svg+xml", contentTypeByFileName("images/email.svg"))
	assert.Equal(t, "image/gif", contentTypeByFileName("a.gif"))
	assert.Equal(t, "", contentTypeByFileName("images/logo"))
}
