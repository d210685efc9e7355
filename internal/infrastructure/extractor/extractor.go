package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

const (
	MimePlainText = "text/plain"
	MimeHTML      = "text/html"
	MimePDF       = "application/pdf"
)

var errEmptyText = errors.New("document has no extractable text")

// Extract returns the report text carried by an uploaded file.
func Extract(filename, mimeType string, body []byte) (string, error) {
	kind := detectKind(filename, mimeType, body)

	var (
		text string
		err  error
	)
	switch kind {
	case MimePlainText:
		text, err = extractPlainText(body)
	case MimeHTML:
		text, err = extractHTML(body)
	case MimePDF:
		text, err = extractPDF(body)
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "extract report text", fmt.Errorf("unsupported format %q for %s", kind, filename))
	}
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract report text", err)
	}
	text = normalizeWhitespace(text)
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract report text", errEmptyText)
	}
	return text, nil
}

func detectKind(filename, mimeType string, body []byte) string {
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		switch mediaType {
		case MimePlainText, "text/markdown":
			return MimePlainText
		case MimeHTML, "application/xhtml+xml":
			return MimeHTML
		case MimePDF:
			return MimePDF
		case "application/octet-stream":
		default:
			return mediaType
		}
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		return MimePlainText
	case ".html", ".htm":
		return MimeHTML
	case ".pdf":
		return MimePDF
	}

	if bytes.HasPrefix(body, []byte("%PDF-")) {
		return MimePDF
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(body))
	return sniffed
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
