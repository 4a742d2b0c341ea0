package handler

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/garcia-cyber/popcornRDC/internal/apierror"
	"github.com/garcia-cyber/popcornRDC/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0 work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// paramID parses the :id path parameter, answering 400 when malformed.
func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service errors onto HTTP statuses. Anything unknown is
// handed to the ErrorHandler middleware, which logs it and answers 500.
func respondError(c *gin.Context, err error) {
	var campo *service.CampoError
	switch {
	case errors.As(err, &campo):
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(map[string]string{campo.Campo: campo.Motivo}))
	case errors.Is(err, service.ErrValidacion):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()).WithCodigo(apierror.CodigoValidacion))
	case errors.Is(err, service.ErrNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.New("Producto no encontrado").WithCodigo(apierror.CodigoNoEncontrado))
	case errors.Is(err, service.ErrConflicto):
		c.JSON(http.StatusConflict, apierror.New("Conflicto al asignar el codigo de barras, reintente").WithCodigo(apierror.CodigoConflicto))
	case errors.Is(err, service.ErrCredenciales):
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()).WithCodigo(apierror.CodigoNoAutorizado))
	default:
		_ = c.Error(err)
	}
}
