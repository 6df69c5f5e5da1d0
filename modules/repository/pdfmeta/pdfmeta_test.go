package pdfmeta

import "testing"

func TestSniffRejectsNonPDF(t *testing.T) {
	_, err := Sniff([]byte("not a pdf"))
	if err != ErrNotPDF {
		t.Fatalf("got %v, want ErrNotPDF", err)
	}
}

func TestSniffAcceptsPDFSignature(t *testing.T) {
	info, err := Sniff([]byte("%PDF-1.4\n%%EOF"))
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if info == nil {
		t.Fatal("expected non-nil info for a PDF-signed stream")
	}
}
