package infra

// pdf.go: printable barcode label using go-pdf/fpdf.
// Layout (62mm × 40mm, common thermal label roll):
//   - Shop name header
//   - Product name (truncated)
//   - Price
//   - Barcode image with the 13-digit text under it

import (
	"bytes"
	"fmt"

	"github.com/garcia-cyber/popcornRDC/internal/barcode"
	"github.com/garcia-cyber/popcornRDC/internal/model"

	"github.com/go-pdf/fpdf"
)

// EtiquetaOpciones holds the label header and currency suffix.
type EtiquetaOpciones struct {
	Tienda string
	Moneda string
}

// GenerarEtiquetaPDF renders a single label for producto and returns the PDF bytes.
func GenerarEtiquetaPDF(p *model.Producto, s barcode.Simbolo, png []byte, opts EtiquetaOpciones) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 40, Ht: 62},
	})
	pdf.SetMargins(3, 3, 3)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 6

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 4, opts.Tienda, "", 1, "C", false, 0, "")

	nombre := p.Nombre
	if len(nombre) > 34 {
		nombre = nombre[:33] + "..."
	}
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 4, pdf.UnicodeTranslatorFromDescriptor("")(nombre), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 6, p.Precio.StringFixed(2)+" "+opts.Moneda, "", 1, "C", false, 0, "")

	// ── Barcode ──────────────────────────────────────────────────────────────
	imgName := "ean13-" + s.Completo
	imgOpts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imgName, imgOpts, bytes.NewReader(png))
	pdf.ImageOptions(imgName, 3, pdf.GetY()+1, contentW, 16, false, imgOpts, 0, "")
	pdf.SetY(pdf.GetY() + 18)

	pdf.SetFont("Courier", "", 8)
	pdf.CellFormat(contentW, 3, s.Completo, "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("pdf: etiqueta: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: output: %w", err)
	}
	return buf.Bytes(), nil
}
