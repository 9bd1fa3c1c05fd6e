package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateDocument carries the fields printed on an issued certificate.
type CertificateDocument struct {
	Number      string
	StudentName string
	CourseTitle string
	IssuedAt    time.Time
	AttestedBy  string
	SealedBy    string
	BackEntered bool
}

// CertificatePDFExporter renders issued certificates as landscape A4 PDFs.
type CertificatePDFExporter struct{}

// NewCertificatePDFExporter constructs a certificate PDF exporter.
func NewCertificatePDFExporter() *CertificatePDFExporter {
	return &CertificatePDFExporter{}
}

// Render produces the PDF bytes for an issued certificate.
func (e *CertificatePDFExporter) Render(doc CertificateDocument) ([]byte, error) {
	if doc.StudentName == "" || doc.CourseTitle == "" {
		return nil, fmt.Errorf("certificate requires student and course")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Times", "B", 28)
	pdf.CellFormat(0, 16, "CERTIFICATE OF COMPLETION", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Times", "", 14)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Times", "B", 22)
	pdf.CellFormat(0, 12, doc.StudentName, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Times", "", 14)
	pdf.CellFormat(0, 8, "has completed the course", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Times", "B", 18)
	pdf.CellFormat(0, 10, strings.ToUpper(doc.CourseTitle), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Times", "", 11)
	if doc.Number != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Certificate no. %s", doc.Number), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued on %s", doc.IssuedAt.Format("2 January 2006")), "", 1, "C", false, 0, "")
	if doc.BackEntered {
		pdf.CellFormat(0, 6, "Recorded retroactively", "", 1, "C", false, 0, "")
	}
	pdf.Ln(12)

	pdf.SetFont("Times", "I", 10)
	if doc.AttestedBy != "" {
		pdf.CellFormat(95, 6, fmt.Sprintf("Attested by %s", doc.AttestedBy), "T", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "", "", 0, "C", false, 0, "")
	}
	if doc.SealedBy != "" {
		pdf.CellFormat(95, 6, fmt.Sprintf("Sealed by %s", doc.SealedBy), "T", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
