package content

import (
	"bytes"
	"errors"
	"io"

	"github.com/ledongthuc/pdf"
)

var (
	errNilSourceReader = errors.New("pdf source reader is nil")
	errEmptyPDFContent = errors.New("pdf content is empty")
	errNilPDFDocument  = errors.New("pdf document is nil")
)

// ExtractTextFromPDFReader extracts text content from a PDF provided via an io.Reader.
// This is intended for use with HTTP response bodies or other in-memory streams.
func ExtractTextFromPDFReader(r io.Reader) (string, error) {
	if r == nil {
		return "", errNilSourceReader
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}

	data := buf.Bytes()
	if len(data) == 0 {
		return "", errEmptyPDFContent
	}

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	return extractTextFromPDFDocument(doc)
}

func extractTextFromPDFDocument(doc *pdf.Reader) (string, error) {
	if doc == nil {
		return "", errNilPDFDocument
	}

	textReader, err := doc.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", err
	}

	return buf.String(), nil
}
