package barcode

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	bc "github.com/boombuler/barcode"
	"github.com/boombuler/barcode/ean"
)

// modulosEAN13 is the width of an EAN-13 symbol in modules, guards included.
const modulosEAN13 = 95

// Renderizador rasterizes EAN-13 symbols to PNG.
type Renderizador struct {
	AnchoModulo int // pixels per module
	Alto        int // bar height in pixels
	Margen      int // quiet zone in modules, applied on every side
}

// DefaultRenderizador matches the sizes the printed labels were designed for.
func DefaultRenderizador() Renderizador {
	return Renderizador{AnchoModulo: 2, Alto: 100, Margen: 11}
}

// Renderizar encodes completo and returns PNG bytes.
func (r Renderizador) Renderizar(completo string) ([]byte, error) {
	if err := ValidarCompleto(completo); err != nil {
		return nil, err
	}
	if r.AnchoModulo <= 0 || r.Alto <= 0 || r.Margen < 0 {
		return nil, fmt.Errorf("renderizador: dimensiones invalidas %+v", r)
	}

	code, err := ean.Encode(completo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalido, err)
	}
	scaled, err := bc.Scale(code, modulosEAN13*r.AnchoModulo, r.Alto)
	if err != nil {
		return nil, fmt.Errorf("renderizador: escalar: %w", err)
	}

	pad := r.Margen * r.AnchoModulo
	b := scaled.Bounds()
	canvas := image.NewGray(image.Rect(0, 0, b.Dx()+2*pad, b.Dy()+2*pad))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(pad, pad, pad+b.Dx(), pad+b.Dy()), scaled, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("renderizador: png: %w", err)
	}
	return buf.Bytes(), nil
}

// Generar runs the encoder and renderer for a stored payload.
func (r Renderizador) Generar(payload string) (Simbolo, []byte, error) {
	s, err := Codificar(payload)
	if err != nil {
		return Simbolo{}, nil, err
	}
	img, err := r.Renderizar(s.Completo)
	if err != nil {
		return Simbolo{}, nil, err
	}
	return s, img, nil
}
