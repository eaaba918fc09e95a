package upload

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

const wordDocumentPath = "word/document.xml"

// Text runs in OOXML parts. Matching on the text tags directly keeps the
// extraction working regardless of paragraph or run attributes.
var (
	wordTextTag  = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	slideTextTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
)

// docxText extracts the text nodes of word/document.xml from a .docx archive.
func docxText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("decode docx: not a zip: %w", err)
	}
	body, err := zipPart(zr, wordDocumentPath)
	if err != nil {
		return "", fmt.Errorf("decode docx: %w", err)
	}
	return joinTagText(wordTextTag, body), nil
}

// slidesText extracts the text nodes of every slide in a .pptx archive.
func slidesText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("decode pptx: not a zip: %w", err)
	}
	var parts []string
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		body, err := zipPart(zr, f.Name)
		if err != nil {
			return "", fmt.Errorf("decode pptx: %w", err)
		}
		if text := joinTagText(slideTextTag, body); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func zipPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%s not found", name)
}

func joinTagText(tag *regexp.Regexp, body []byte) string {
	matches := tag.FindAllSubmatch(body, -1)
	var b strings.Builder
	for _, m := range matches {
		text := strings.TrimSpace(string(m[1]))
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String()
}
