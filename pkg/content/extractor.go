package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/edopalomino/generate-startupcafe/pkg/httpclient"
)

var (
	errEmptyLink    = errors.New("item has no link")
	errEmptyArticle = errors.New("no readable text found")
)

// Extractor returns the main text of the page behind a link
type Extractor interface {
	Extract(ctx context.Context, link string) (string, error)
}

// Fetcher retrieves a page body
type Fetcher interface {
	GetWithRetry(ctx context.Context, url string) (*httpclient.Response, error)
}

// WebExtractor fetches the page and extracts readable text from HTML or PDF responses
type WebExtractor struct {
	fetcher Fetcher
}

// NewWebExtractor creates a new web extractor
func NewWebExtractor(fetcher Fetcher) *WebExtractor {
	return &WebExtractor{fetcher: fetcher}
}

// Extract fetches link and returns its main text
func (e *WebExtractor) Extract(ctx context.Context, link string) (string, error) {
	if strings.TrimSpace(link) == "" {
		return "", errEmptyLink
	}

	resp, err := e.fetcher.GetWithRetry(ctx, link)
	if err != nil {
		return "", fmt.Errorf("fetch article: %w", err)
	}

	if isPDF(resp) {
		text, err := ExtractTextFromPDFReader(bytes.NewReader(resp.Body))
		if err != nil {
			return "", fmt.Errorf("extract pdf text: %w", err)
		}
		text = strings.Join(strings.Fields(text), " ")
		if text == "" {
			return "", errEmptyArticle
		}
		return text, nil
	}

	pageURL, _ := url.Parse(resp.URL)
	text, err := ExtractText(resp.Body, pageURL)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errEmptyArticle
	}
	return text, nil
}

// ExtractText extracts the main article text from HTML content. Pages where
// readability finds no article fall back to the visible body text.
func ExtractText(htmlContent []byte, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(htmlContent), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	if text := strings.TrimSpace(article.TextContent); text != "" {
		return text, nil
	}
	return bodyText(htmlContent), nil
}

func bodyText(htmlContent []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	body := doc.Find("body")
	body.Find("script, style, noscript, nav, header, footer, form").Remove()
	return strings.Join(strings.Fields(body.Text()), " ")
}

func isPDF(resp *httpclient.Response) bool {
	if resp.Header != nil {
		if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && mediaType == "application/pdf" {
			return true
		}
	}
	if u, err := url.Parse(resp.URL); err == nil {
		return strings.EqualFold(path.Ext(u.Path), ".pdf")
	}
	return false
}
