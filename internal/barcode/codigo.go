package barcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxIntentos bounds the uniqueness loop. With 10^12 possible codes it
// is only reached when the probe keeps reporting collisions.
const DefaultMaxIntentos = 1000

// ErrCodigosAgotados means no free code was found within the retry budget.
var ErrCodigosAgotados = errors.New("no se encontro un codigo de barras libre")

// ExisteFunc reports whether a payload is already assigned to a product.
type ExisteFunc func(ctx context.Context, codigo string) (bool, error)

// Asignador draws random payloads until one is not taken.
type Asignador struct {
	generar     func() (string, error)
	maxIntentos int
}

// NewAsignador returns an allocator backed by crypto/rand.
func NewAsignador(maxIntentos int) *Asignador {
	return NewAsignadorConGenerador(GenerarCodigo, maxIntentos)
}

// NewAsignadorConGenerador lets callers (mostly tests) control the sequence
// of candidate codes.
func NewAsignadorConGenerador(gen func() (string, error), maxIntentos int) *Asignador {
	if maxIntentos <= 0 {
		maxIntentos = DefaultMaxIntentos
	}
	return &Asignador{generar: gen, maxIntentos: maxIntentos}
}

// Asignar returns a payload for which existe reports false. The final guard
// against races is the unique index in the database, not this check.
func (a *Asignador) Asignar(ctx context.Context, existe ExisteFunc) (string, error) {
	for intento := 1; intento <= a.maxIntentos; intento++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		codigo, err := a.generar()
		if err != nil {
			return "", fmt.Errorf("generar codigo: %w", err)
		}
		if !SoloDigitos(codigo, LongitudPayload) {
			return "", fmt.Errorf("%w: generador devolvio %q", ErrPayloadInvalido, codigo)
		}
		taken, err := existe(ctx, codigo)
		if err != nil {
			return "", fmt.Errorf("verificar codigo: %w", err)
		}
		if !taken {
			return codigo, nil
		}
	}
	return "", fmt.Errorf("%w tras %d intentos", ErrCodigosAgotados, a.maxIntentos)
}

// GenerarCodigo returns 12 digits drawn uniformly from 0-9.
func GenerarCodigo() (string, error) {
	return generarDesde(rand.Reader)
}

func generarDesde(r io.Reader) (string, error) {
	out := make([]byte, 0, LongitudPayload)
	buf := make([]byte, LongitudPayload*2)
	for len(out) < LongitudPayload {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// 250 is the largest multiple of 10 below 256; anything above
			// would bias the low digits.
			if b >= 250 {
				continue
			}
			out = append(out, '0'+b%10)
			if len(out) == LongitudPayload {
				break
			}
		}
	}
	return string(out), nil
}
