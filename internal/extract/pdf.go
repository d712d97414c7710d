package extract

import (
	"bytes"

	"github.com/paperbase-ai/paperbase/internal/domain"
)

var (
	pdfHeader     = []byte("%PDF-")
	encryptMarker = []byte("/Encrypt")
)

// ValidatePDF performs the structural checks the pipeline requires before an
// extraction call is attempted: a PDF header and no encryption dictionary.
func ValidatePDF(fileBytes []byte) error {
	if len(fileBytes) == 0 || !bytes.HasPrefix(fileBytes, pdfHeader) {
		return domain.ErrNotPDF
	}
	if bytes.Contains(fileBytes, encryptMarker) {
		return domain.ErrPasswordProtected
	}
	return nil
}
