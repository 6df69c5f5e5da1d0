// Package pdfmeta extracts the PDF trailer's Info dictionary using
// ledongthuc/pdf — metadata only, never the text body, staying inside
// spec.md's Non-goal boundary ("OCR/content inspection of PDFs beyond
// metadata extraction").
package pdfmeta

import (
	"bytes"
	"errors"
	"time"

	"github.com/ledongthuc/pdf"
)

// Info is the subset of the PDF Info dictionary the Period Planner and the
// upload MIME check care about.
type Info struct {
	PageCount    int
	CreationDate *time.Time
}

var pdfMagic = []byte("%PDF-")

// ErrNotPDF is returned when data does not carry a PDF file signature.
var ErrNotPDF = errors.New("pdfmeta: not a readable PDF")

// Sniff validates that data is a PDF stream and extracts its Info
// dictionary. It is both the upload MIME sanity check ("is this byte
// stream actually a readable PDF", spec.md §4.1b) and one of the candidate
// name_date sources for period inference (spec.md §4.1.2).
//
// The file-signature check is the authoritative MIME gate; full structural
// parsing via ledongthuc/pdf is attempted for metadata only and degrades
// gracefully (a valid-but-unusual PDF still uploads, just without a
// name_date candidate) rather than blocking the upload on parser quirks.
func Sniff(data []byte) (*Info, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, ErrNotPDF
	}

	info := &Info{}

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return info, nil
	}
	info.PageCount = doc.NumPage()

	trailer := doc.Trailer()
	infoDict := trailer.Key("Info")
	if infoDict.IsNull() {
		return info, nil
	}
	creationDate := infoDict.Key("CreationDate")
	if creationDate.Kind() == pdf.String {
		if t, ok := parsePDFDate(creationDate.RawString()); ok {
			info.CreationDate = &t
		}
	}
	return info, nil
}

// parsePDFDate parses the PDF date string format "D:YYYYMMDDHHmmSS" (the
// timezone suffix, if any, is ignored — CreationDate is only ever used as a
// low-confidence period-inference candidate, not an authoritative value).
func parsePDFDate(raw string) (time.Time, bool) {
	s := raw
	if len(s) >= 2 && s[:2] == "D:" {
		s = s[2:]
	}
	if len(s) < 8 {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", s[:8])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
