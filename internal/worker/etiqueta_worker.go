package worker

// etiqueta_worker.go
// Processes label jobs from QueueEtiquetas: builds the product's label PDF and
// mails it as an attachment through the SMTP circuit breaker.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garcia-cyber/popcornRDC/internal/infra"
	"github.com/garcia-cyber/popcornRDC/internal/model"
	"github.com/garcia-cyber/popcornRDC/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EtiquetaJob is the payload queued on QueueEtiquetas.
type EtiquetaJob struct {
	ProductoID uuid.UUID `json:"producto_id"`
	Email      string    `json:"email"`
}

// Etiquetador builds the label PDF of a product.
type Etiquetador interface {
	Etiqueta(ctx context.Context, id uuid.UUID) (*model.Producto, []byte, error)
}

// Enviador delivers a PDF by e-mail.
type Enviador interface {
	EnviarEtiqueta(to, subject, body, filename string, pdf []byte) error
}

type EtiquetaWorker struct {
	etiquetas Etiquetador
	mailer    Enviador
	cb        *infra.CircuitBreaker
	tienda    string
}

func NewEtiquetaWorker(etiquetas Etiquetador, mailer Enviador, cb *infra.CircuitBreaker, tienda string) *EtiquetaWorker {
	return &EtiquetaWorker{etiquetas: etiquetas, mailer: mailer, cb: cb, tienda: tienda}
}

func (w *EtiquetaWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var job EtiquetaJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return fmt.Errorf("%w: payload invalido: %v", ErrPermanente, err)
	}
	if job.Email == "" || job.ProductoID == uuid.Nil {
		return fmt.Errorf("%w: email o producto vacio", ErrPermanente)
	}

	p, pdf, err := w.etiquetas.Etiqueta(ctx, job.ProductoID)
	if errors.Is(err, service.ErrNoEncontrado) {
		return fmt.Errorf("%w: producto %s eliminado", ErrPermanente, job.ProductoID)
	}
	if err != nil {
		return fmt.Errorf("generar etiqueta: %w", err)
	}

	subject := fmt.Sprintf("%s - etiqueta %s", w.tienda, p.Nombre)
	body := fmt.Sprintf("Etiqueta del producto %s (codigo %s) adjunta.", p.Nombre, p.Codigo())
	filename := "etiqueta-" + p.Codigo() + ".pdf"

	err = w.cb.Execute(func() error {
		return w.mailer.EnviarEtiqueta(job.Email, subject, body, filename, pdf)
	})
	if err != nil {
		return fmt.Errorf("enviar etiqueta: %w", err)
	}
	log.Info().Str("to", job.Email).Str("producto", p.ID.String()).Msg("etiqueta enviada")
	return nil
}
