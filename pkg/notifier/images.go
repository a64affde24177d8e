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
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/telekom/email-notifier/pkg/metrics"
	"github.com/telekom/email-notifier/pkg/utils"
)

const dataImagePrefix = "data:image/"

var (
	dataImageHeader = regexp.MustCompile(`^data:image/[^;]*;base64,?`)
	dataMimeType    = regexp.MustCompile(`(?i)^data:([a-z0-9]+/[a-z0-9]+).*,.*`)
)

// ImageExtractor turns local img sources of an HTML body into inline
// attachments. File sources are resolved against a base directory and
// rejected when they resolve outside of it.
type ImageExtractor struct {
	baseDir string
	log     *zap.SugaredLogger
	newID   func() string
}

// NewImageExtractor creates an extractor for the canonical directory baseDir.
func NewImageExtractor(baseDir string, log *zap.SugaredLogger) *ImageExtractor {
	return &ImageExtractor{
		baseDir: baseDir,
		log:     log,
		newID:   uuid.NewString,
	}
}

// imageRef is one img element selected for extraction.
type imageRef struct {
	node *html.Node
	attr int
	src  string
}

// rewrite is the outcome for one imageRef: the new cid and, unless the image
// was rejected, its attachment.
type rewrite struct {
	ref        imageRef
	cid        string
	attachment *Attachment
}

// Extract parses body, resolves every img whose src does not start with
// "http" and returns the serialized document with those sources replaced by
// cid: references. Nothing in the document changes unless every image
// resolved without error.
func (x *ImageExtractor) Extract(body string) (string, []Attachment, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse body as HTML: %w", err)
	}

	refs := collectImages(doc)
	rewrites := make([]rewrite, 0, len(refs))
	for _, ref := range refs {
		rw, err := x.resolve(ref)
		if err != nil {
			return "", nil, err
		}
		rewrites = append(rewrites, rw)
	}

	var attachments []Attachment
	for _, rw := range rewrites {
		rw.ref.node.Attr[rw.ref.attr].Val = "cid:" + rw.cid
		if rw.attachment != nil {
			attachments = append(attachments, *rw.attachment)
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", nil, fmt.Errorf("failed to render HTML body: %w", err)
	}
	return buf.String(), attachments, nil
}

// collectImages returns img elements in document order whose src is not
// remote. The remote check is a plain "http" prefix test.
func collectImages(doc *html.Node) []imageRef {
	var refs []imageRef
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			for i, a := range n.Attr {
				if a.Namespace == "" && a.Key == "src" {
					if !strings.HasPrefix(a.Val, "http") {
						refs = append(refs, imageRef{node: n, attr: i, src: a.Val})
					}
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs
}

func (x *ImageExtractor) resolve(ref imageRef) (rewrite, error) {
	id := x.newID()
	rw := rewrite{ref: ref, cid: id}
	source := strings.TrimSpace(ref.src)

	var (
		contentType string
		data        []byte
	)
	if strings.HasPrefix(source, dataImagePrefix) {
		decoded, err := decodeBase64(dataImageHeader.ReplaceAllString(source, ""))
		if err != nil {
			return rw, fmt.Errorf("%w: %w", ErrAttachmentDecode, err)
		}
		data, contentType = decoded, extractMimeType(source)
		metrics.InlineImages.WithLabelValues("embedded").Inc()
	} else {
		path, inside, err := utils.ResolveWithin(x.baseDir, source)
		if err != nil {
			return rw, fmt.Errorf("%w: %s: %w", ErrAttachmentRead, source, err)
		}
		if !inside {
			metrics.InlineImages.WithLabelValues("rejected").Inc()
			x.log.Warnw("Image is not attached",
				"src", source,
				"baseDir", x.baseDir,
				"error", ErrPathContainment)
			return rw, nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return rw, fmt.Errorf("%w: %s: %w", ErrAttachmentRead, source, err)
		}
		data, contentType = content, contentTypeByFileName(source)
		metrics.InlineImages.WithLabelValues("file").Inc()
	}

	rw.attachment = &Attachment{
		ContentID:   "<" + id + ">",
		ContentType: contentType,
		Data:        data,
		Disposition: DispositionInline,
	}
	return rw, nil
}

// decodeBase64 decodes standard base64 with optional padding. Padding that is
// present must be correct.
func decodeBase64(payload string) ([]byte, error) {
	if strings.HasSuffix(payload, "=") {
		return base64.StdEncoding.DecodeString(payload)
	}
	return base64.RawStdEncoding.DecodeString(payload)
}

// extractMimeType returns the lower-cased type/subtype of a data URI, or ""
// when the URI has no recognizable media type.
func extractMimeType(source string) string {
	match := dataMimeType.FindStringSubmatch(source)
	if match == nil {
		return ""
	}
	return strings.ToLower(match[1])
}

func contentTypeByFileName(name string) string {
	if strings.HasSuffix(name, ".png") {
		return "image/png"
	}
	return mime.TypeByExtension(filepath.Ext(name))
}
