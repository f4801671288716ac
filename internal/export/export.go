// Package export renders journal entries as downloadable documents.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/MrSnakeDoc/mindhaven/internal/domain"
)

type Format string

const (
	FormatText Format = "txt"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts "txt"/"text" and "pdf", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "txt", "text":
		return FormatText, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", domain.ErrValidation, s)
}

// Document is a rendered export ready to be served as a download.
type Document struct {
	Name     string
	MIMEType string
	Body     []byte
}

// Render dispatches to the renderer for format. Entries are written in the
// order given and are not modified.
func Render(format Format, entries []domain.Entry) (Document, error) {
	switch format {
	case FormatText:
		return Text(entries), nil
	case FormatPDF:
		return PDF(entries)
	}
	return Document{}, fmt.Errorf("%w: unknown export format %q", domain.ErrValidation, format)
}

// Text renders "Date: <date>\nEntry: <text>" blocks separated by a blank line.
func Text(entries []domain.Entry) Document {
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		blocks = append(blocks, fmt.Sprintf("Date: %s\nEntry: %s", e.Date(), e.Text))
	}
	return Document{
		Name:     "journal_entries.txt",
		MIMEType: "text/plain; charset=utf-8",
		Body:     []byte(strings.Join(blocks, "\n\n")),
	}
}

// PDF renders one A4 document with a date line and a wrapped entry block per
// entry. The core fonts only cover latin-1, so text is translated to cp1252.
func PDF(entries []domain.Entry) (Document, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, e := range entries {
		pdf.CellFormat(0, 10, tr("Date: "+e.Date()), "", 1, "L", false, 0, "")
		pdf.MultiCell(0, 10, tr("Entry: "+e.Text), "", "L", false)
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Document{}, fmt.Errorf("render pdf: %w", err)
	}
	return Document{
		Name:     "journal_entries.pdf",
		MIMEType: "application/pdf",
		Body:     buf.Bytes(),
	}, nil
}
