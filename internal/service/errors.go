package service

import (
	"errors"

	"github.com/garcia-cyber/popcornRDC/internal/barcode"
)

var (
	// ErrValidacion covers bad operator input (name, price, code format).
	ErrValidacion = errors.New("datos invalidos")
	// ErrNoEncontrado is a lookup miss.
	ErrNoEncontrado = errors.New("producto no encontrado")
	// ErrConflicto is a unique-code race that persisted after one retry.
	ErrConflicto = errors.New("conflicto de codigo de barras")
	// ErrCodigosAgotados is the allocator giving up.
	ErrCodigosAgotados = barcode.ErrCodigosAgotados
	// ErrCredenciales is a failed login.
	ErrCredenciales = errors.New("credenciales invalidas")
)
