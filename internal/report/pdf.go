package report

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jung-kurt/gofpdf"

	"github.com/IlyaMakar/aidd_admin/internal/logger"
	"github.com/IlyaMakar/aidd_admin/internal/service"
)

const fontFamily = "DejaVuSans"

type Generator struct {
	fontPath string
	now      func() time.Time
}

func NewGenerator(fontPath string) *Generator {
	return &Generator{fontPath: fontPath, now: time.Now}
}

// DashboardPDF lays out the cards, the activity chart and both
// distributions on one A4 page. Without the UTF-8 font the report falls
// back to Helvetica, which cannot show Cyrillic.
func (g *Generator) DashboardPDF(d *service.Dashboard) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	family, tr := g.setupFont(pdf)
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont(family, "B", 20)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(190, 10, tr("Статистика бота"), "", 1, "C", false, 0, "")
	pdf.SetFont(family, "", 12)
	pdf.CellFormat(190, 8, tr(fmt.Sprintf("Сформировано: %s", g.now().Format("02.01.2006 15:04"))), "", 1, "C", false, 0, "")
	if d.IsMock {
		pdf.CellFormat(190, 6, tr("Демонстрационные данные"), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont(family, "B", 16)
	pdf.CellFormat(190, 10, tr("Общая статистика"), "", 1, "L", false, 0, "")
	pdf.SetFont(family, "", 12)
	for _, c := range append(append([]service.Card{}, d.Cards...), d.Details...) {
		line := fmt.Sprintf("%s: %s", c.Title, c.Value)
		if c.ShowChange() {
			sign := "+"
			if c.Change < 0 {
				sign = "-"
			}
			line += fmt.Sprintf(" (%s%s %s)", sign, c.ChangeText, c.Description)
		}
		pdf.CellFormat(190, 7, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if img, err := ActivityChart(d.Activity, d.PeriodTitle); err == nil {
		pdf.SetFont(family, "B", 14)
		pdf.CellFormat(190, 10, tr("График активности"), "", 1, "L", false, 0, "")
		addImage(pdf, "activity", img, 10, pdf.GetY(), 190, 76)
		pdf.SetY(pdf.GetY() + 80)
	} else {
		logger.Warn("Skipping activity chart", "error", err)
	}

	pdf.SetFont(family, "B", 14)
	pdf.CellFormat(190, 10, tr("Распределение пользователей"), "", 1, "L", false, 0, "")
	top := pdf.GetY()
	if img, err := LanguageChart(d.Languages); err == nil {
		addImage(pdf, "languages", img, 10, top, 95, 50)
	}
	if img, err := PremiumChart(d.Premium); err == nil {
		addImage(pdf, "premium", img, 125, top, 50, 50)
	}
	pdf.SetY(top + 54)

	pdf.SetFont(family, "", 10)
	for _, e := range d.Languages {
		pdf.CellFormat(95, 5, tr(fmt.Sprintf("- %s: %s", e.Label, humanize.Comma(int64(e.Count)))), "", 1, "L", false, 0, "")
	}
	for _, e := range d.Premium {
		pdf.CellFormat(95, 5, tr(fmt.Sprintf("- %s: %s (%.1f%%)", e.Name, humanize.Comma(int64(e.Value)), e.Percentage)), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) setupFont(pdf *gofpdf.Fpdf) (string, func(string) string) {
	if _, err := os.Stat(g.fontPath); err != nil {
		logger.Warn("Font not found, falling back to Helvetica", "path", g.fontPath)
		return "Helvetica", pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddUTF8Font(fontFamily, "", g.fontPath)
	pdf.AddUTF8Font(fontFamily, "B", g.fontPath)
	return fontFamily, func(s string) string { return s }
}

func addImage(pdf *gofpdf.Fpdf, name string, img []byte, x, y, w, h float64) {
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
	pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
}
