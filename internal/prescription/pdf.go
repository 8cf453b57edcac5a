// Package prescription renders prescriptions as PDF files.
package prescription

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"intake-chatbot/pkg"
)

const dateLayout = "02-01-2006"

const aiNotice = "AI-generated suggestion, not from the clinical knowledge base. Confirm with a physician."

var generalAdvice = []string{
	"Take medication as prescribed.",
	"Maintain hydration.",
	"Take adequate rest.",
	"Monitor symptoms.",
}

// PDFGenerator writes prescriptions into a directory.
type PDFGenerator struct {
	dir    string
	logger *zap.Logger
}

// NewPDFGenerator creates a generator writing into dir.  An empty dir means
// the user's Downloads folder.
func NewPDFGenerator(dir string, logger *zap.Logger) (*PDFGenerator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, "Downloads")
	}
	return &PDFGenerator{dir: dir, logger: logger}, nil
}

// Dir returns the output directory.
func (g *PDFGenerator) Dir() string { return g.dir }

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

var asciiFallbacks = strings.NewReplacer(
	"→", "->", "←", "<-", "≥", ">=", "≤", "<=", "≈", "~", "✓", "-", "✔", "-",
	"**", "", "`", "",
)

// printable rewrites free text, model replies in particular, so the core
// fonts can show it.  The cp1252 translator drops runes it cannot map, so
// anything outside Windows-1252 becomes '?' instead of vanishing.
func printable(s string) string {
	s = asciiFallbacks.Replace(s)
	return strings.Map(func(r rune) rune {
		if _, ok := charmap.Windows1252.EncodeRune(r); ok {
			return r
		}
		return '?'
	}, s)
}

// FileName derives the document name from the patient name and case id.
func FileName(p pkg.Prescription) string {
	name := strings.ReplaceAll(strings.TrimSpace(p.PatientName), " ", "_")
	name = unsafeChars.ReplaceAllString(name, "")
	if name == "" {
		name = "Patient"
	}
	if id := shortID(p.CaseID); id != "" {
		return fmt.Sprintf("Prescription_%s_%s.pdf", name, id)
	}
	return fmt.Sprintf("Prescription_%s.pdf", name)
}

func shortID(id string) string {
	id = unsafeChars.ReplaceAllString(id, "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Generate renders p and returns the path of the written file.
func (g *PDFGenerator) Generate(ctx context.Context, p pkg.Prescription) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("create prescription directory: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Medical Prescription", true)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	heading := func(text string, size float64) {
		pdf.SetFont("Helvetica", "B", size)
		pdf.CellFormat(0, 10, tr(text), "", 1, "L", false, 0, "")
	}
	line := func(text string) {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(printable(text)), "", "L", false)
	}

	heading("Medical Prescription", 18)
	line("Date: " + p.IssuedAt.Format(dateLayout))
	pdf.Ln(4)

	heading("Patient Details", 14)
	line("Name: " + p.PatientName)
	line("Symptoms: " + p.Symptoms)
	line(fmt.Sprintf("Duration of illness: %d days", p.DurationDays))
	allergies := p.Allergies
	if strings.TrimSpace(allergies) == "" {
		allergies = "No known allergies"
	}
	line("Allergies: " + allergies)
	pdf.Ln(4)

	heading("Diagnosis", 14)
	line(p.Diagnosis)
	if p.Provenance == pkg.ProvenanceLanguageModel {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr(aiNotice), "", "L", false)
	}
	pdf.Ln(4)

	heading("Medication", 14)
	line("Medicine: " + p.Medicine)
	line("Dosage Instructions: " + p.Dosage)
	line(fmt.Sprintf("Medication Duration: %d days", p.TreatmentDays))
	line("Next Follow-Up Date: " + p.FollowUpDate().Format(dateLayout))
	pdf.Ln(4)

	heading("General Advice", 14)
	for _, advice := range generalAdvice {
		line("- " + advice)
	}

	path := filepath.Join(g.dir, FileName(p))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write prescription: %w", err)
	}
	g.logger.Info("prescription written",
		zap.String("case_id", p.CaseID),
		zap.String("path", path))
	return path, nil
}
