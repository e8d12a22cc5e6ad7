package document

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const mimePDF = "application/pdf"

// DetectMIME sniffs content. A client-declared type is kept unless it is the
// generic octet-stream.
func DetectMIME(declared string, content []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(content).String()
}

// Extension picks the object key extension from the file name, falling back
// to the sniffed type.
func Extension(fileName string, content []byte) string {
	if ext := strings.ToLower(filepath.Ext(fileName)); ext != "" && len(ext) <= 8 {
		return ext
	}
	return mimetype.Detect(content).Extension()
}

// IsPDF reports whether mime names a PDF.
func IsPDF(mime string) bool {
	return strings.HasPrefix(strings.ToLower(mime), mimePDF)
}

// PageCount returns the number of pages of a PDF.
func PageCount(content []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(content), conf)
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return n, nil
}
