package document

import (
	"strings"
	"testing"
)

func TestValidatePDF(t *testing.T) {
	if err := ValidatePDF([]byte("%PDF-1.7 content")); err != nil {
		t.Errorf("valid header rejected: %v", err)
	}
	if err := ValidatePDF([]byte("plain text")); err == nil {
		t.Error("non-PDF data accepted")
	}
	if err := ValidatePDF([]byte("%PD")); err == nil {
		t.Error("truncated header accepted")
	}
}

func TestLoadBytes_Garbage(t *testing.T) {
	data := []byte("%PDF-1.4\n" + strings.Repeat("not really a pdf body\n", 20))
	if _, err := LoadBytes(data); err == nil {
		t.Error("expected error for malformed PDF data")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/file.pdf")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "opening pdf") {
		t.Errorf("error %q missing open context", err)
	}
}
