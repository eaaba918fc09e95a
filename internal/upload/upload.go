// Package upload turns files dropped into watched directories into plain
// text suitable for indexing.
package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Read loads the file at path and returns its text content. The format is
// chosen by extension; unknown extensions are treated as plain text.
func Read(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	return Decode(content, filepath.Ext(path))
}

// Decode extracts text from content. ext includes the leading dot.
func Decode(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return pdfText(content)
	case ".docx":
		return docxText(content)
	case ".pptx":
		return slidesText(content)
	case ".xlsx":
		return sheetText(content)
	default:
		return plainText(content), nil
	}
}

// plainText returns content as a string, replacing invalid UTF-8 sequences
// with the replacement character.
func plainText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	return strings.ToValidUTF8(string(content), "�")
}
