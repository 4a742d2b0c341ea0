// Package barcode implements the product identifier pipeline: random 12-digit
// payload allocation, EAN-13 check digit computation and PNG rendering.
package barcode

import (
	"errors"
	"fmt"
)

const (
	// LongitudPayload is the number of data digits stored per product.
	LongitudPayload = 12
	// LongitudCompleto is the printed EAN-13 length (payload + check digit).
	LongitudCompleto = 13
)

// ErrPayloadInvalido is returned when the encoder or renderer receives a
// value with the wrong length or non-digit characters.
var ErrPayloadInvalido = errors.New("codigo de barras invalido")

// Simbolo is the EAN-13 symbol derived from a 12-digit payload.
type Simbolo struct {
	Payload  string
	Digito   int
	Completo string
}

// Codificar computes the check digit of payload and returns the full symbol.
// It is a pure function of payload.
func Codificar(payload string) (Simbolo, error) {
	d, err := DigitoControl(payload)
	if err != nil {
		return Simbolo{}, err
	}
	return Simbolo{
		Payload:  payload,
		Digito:   d,
		Completo: payload + string(rune('0'+d)),
	}, nil
}

// DigitoControl applies the EAN-13 rule: digits at odd positions (1-based,
// from the left) weigh 1, even positions weigh 3, check = (10 - sum%10) % 10.
func DigitoControl(payload string) (int, error) {
	if !SoloDigitos(payload, LongitudPayload) {
		return 0, fmt.Errorf("%w: se esperaban %d digitos, recibido %q", ErrPayloadInvalido, LongitudPayload, payload)
	}
	sum := 0
	for i := 0; i < LongitudPayload; i++ {
		n := int(payload[i] - '0')
		if i%2 == 1 {
			n *= 3
		}
		sum += n
	}
	return (10 - sum%10) % 10, nil
}

// ValidarCompleto reports whether completo is a 13-digit value whose last
// digit matches the check digit of its first 12.
func ValidarCompleto(completo string) error {
	if !SoloDigitos(completo, LongitudCompleto) {
		return fmt.Errorf("%w: se esperaban %d digitos, recibido %q", ErrPayloadInvalido, LongitudCompleto, completo)
	}
	s, err := Codificar(completo[:LongitudPayload])
	if err != nil {
		return err
	}
	if s.Completo != completo {
		return fmt.Errorf("%w: digito de control %c, esperado %d", ErrPayloadInvalido, completo[LongitudPayload], s.Digito)
	}
	return nil
}

// SoloDigitos reports whether s has exactly n ASCII decimal digits.
func SoloDigitos(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
