package rag

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	apperrors "github.com/docchat/backend-go/internal/errors"
)

// TextExtractor 将文档字节流转为单个有序文本串
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

// PDFExtractor 基于unipdf的PDF文本提取器
type PDFExtractor struct{}

// NewPDFExtractor 创建PDF提取器
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract 按页码升序（1..N）提取每页文本，页间以单个空格连接。
// 字节流不是合法PDF或任一页无法解码时整体失败，不返回部分结果。
func (e *PDFExtractor) Extract(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", apperrors.NewExtractionError(fmt.Errorf("invalid pdf: %w", err))
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", apperrors.NewExtractionError(fmt.Errorf("failed to read page count: %w", err))
	}

	var textBuilder strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", apperrors.NewExtractionError(fmt.Errorf("failed to load page %d: %w", i, err))
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", apperrors.NewExtractionError(fmt.Errorf("failed to build extractor for page %d: %w", i, err))
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", apperrors.NewExtractionError(fmt.Errorf("failed to extract text of page %d: %w", i, err))
		}

		if i > 1 {
			textBuilder.WriteString(" ")
		}
		textBuilder.WriteString(text)
	}

	return textBuilder.String(), nil
}
