package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Generator renders documents for notifications (easy to mock in tests).
type Generator interface {
	GenerateEventSummary(data EventSummaryData) (string, []byte, error)
}

// DocumentGenerator writes PDFs under RootDir.
type DocumentGenerator struct {
	RootDir  string // storage root, e.g. "./files"
	FontPath string // TTF path, e.g. "assets/fonts/DejaVuSans.ttf"; empty means core Helvetica
	fontName string
}

// SummaryTask is one row of the task table.
type SummaryTask struct {
	Department string
	Title      string
	TitleAr    string
	Status     string
	Deadline   *time.Time
}

type EventSummaryData struct {
	EventID     int64
	EventName   string
	EventNameAr string
	Location    string
	StartDate   time.Time
	EndDate     *time.Time
	Tasks       []SummaryTask
	GeneratedAt time.Time
	Filename    string // bare file name; generated when empty
}

func NewDocumentGenerator(rootDir, fontPath string) *DocumentGenerator {
	g := &DocumentGenerator{
		RootDir:  filepath.Clean(rootDir),
		FontPath: fontPath,
		fontName: "DejaVu",
	}
	if fontPath == "" {
		g.fontName = "Helvetica"
	}
	return g
}

// GenerateEventSummary renders the event's task summary, stores a copy under
// RootDir and returns the public path together with the PDF bytes.
func (g *DocumentGenerator) GenerateEventSummary(data EventSummaryData) (string, []byte, error) {
	filename := data.Filename
	if filename == "" {
		filename = fmt.Sprintf("event_%d_summary.pdf", data.EventID)
	}
	absPath, err := g.ensureTarget(filename)
	if err != nil {
		return "", nil, err
	}
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Event summary #%d", data.EventID), true)
	pdf.SetAuthor("Events Administration", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	g.addUTF8Font(pdf)
	tr := g.translator(pdf)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, tr(data.EventName), "", 1, "C", false, 0, "")
	if data.EventNameAr != "" && g.FontPath != "" {
		pdf.SetFont(g.fontName, "", 14)
		pdf.CellFormat(0, 8, data.EventNameAr, "", 1, "C", false, 0, "")
	}
	g.hr(pdf)

	g.sectionTitle(pdf, "Event")
	g.kvLine(pdf, "Location", tr(data.Location))
	g.kvLine(pdf, "Starts", data.StartDate.Format("02.01.2006 15:04"))
	if data.EndDate != nil {
		g.kvLine(pdf, "Ends", data.EndDate.Format("02.01.2006 15:04"))
	}
	g.kvLine(pdf, "Tasks", fmt.Sprintf("%d", len(data.Tasks)))
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, "Tasks")
	g.taskTable(pdf, tr, data.Tasks)

	pdf.AliasNbPages("")
	generated := data.GeneratedAt.Format("02.01.2006 15:04")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 9)
		pdf.CellFormat(0, 10,
			fmt.Sprintf("Generated %s  |  Page %d/{nb}", generated, pdf.PageNo()),
			"", 0, "C", false, 0, "",
		)
	})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return "", nil, fmt.Errorf("render event summary: %w", err)
	}
	if err := os.WriteFile(absPath, buf.Bytes(), 0o644); err != nil {
		return "", nil, fmt.Errorf("write event summary: %w", err)
	}
	return "/" + filepath.ToSlash(filepath.Base(absPath)), buf.Bytes(), nil
}

func (g *DocumentGenerator) taskTable(pdf *gofpdf.Fpdf, tr func(string) string, tasks []SummaryTask) {
	widths := []float64{40, 70, 30, 30}
	headers := []string{"Department", "Task", "Status", "Deadline"}

	pdf.SetFont(g.fontName, "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(g.fontName, "", 10)
	if len(tasks) == 0 {
		pdf.CellFormat(170, 7, "No tasks", "1", 1, "C", false, 0, "")
		return
	}
	for _, t := range tasks {
		deadline := "-"
		if t.Deadline != nil {
			deadline = t.Deadline.Format("02.01.2006")
		}
		pdf.CellFormat(widths[0], 7, tr(t.Department), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, tr(t.Title), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, t.Status, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 7, deadline, "1", 1, "L", false, 0, "")
	}
}

func (g *DocumentGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *DocumentGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *DocumentGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func (g *DocumentGenerator) ensureTarget(filename string) (string, error) {
	if err := os.MkdirAll(g.RootDir, 0o755); err != nil {
		return "", fmt.Errorf("create files dir: %w", err)
	}
	filename = filepath.Base(filename)
	return filepath.Join(g.RootDir, filename), nil
}

func (g *DocumentGenerator) addUTF8Font(pdf *gofpdf.Fpdf) {
	if g.FontPath == "" {
		return
	}
	pdf.AddUTF8Font(g.fontName, "", g.FontPath)
	pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
}

// translator maps UTF-8 text onto the core font's code page when no TTF is configured.
func (g *DocumentGenerator) translator(pdf *gofpdf.Fpdf) func(string) string {
	if g.FontPath != "" {
		return func(s string) string { return s }
	}
	return pdf.UnicodeTranslatorFromDescriptor("")
}
