// Package apierror holds the JSON error envelopes returned by the API.
// Internal details (stack traces, SQL errors) never reach these structs.
package apierror

// Machine-readable codes carried next to the human message.
const (
	CodigoValidacion   = "validacion"
	CodigoNoEncontrado = "no_encontrado"
	CodigoConflicto    = "conflicto"
	CodigoNoAutorizado = "no_autorizado"
	CodigoInterno      = "interno"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Codigo string `json:"codigo,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// WithCodigo returns the error tagged with a machine-readable code.
func (e *APIError) WithCodigo(codigo string) *APIError {
	e.Codigo = codigo
	return e
}

// ValidationError reports the offending fields.
type ValidationError struct {
	Detail string            `json:"detail"`
	Codigo string            `json:"codigo"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Codigo: CodigoValidacion, Fields: fields}
}
