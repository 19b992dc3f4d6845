package http

import (
	"context"
	"errors"
	"golang-backtest/internal/backtest"
	"golang-backtest/internal/dto"
	"golang-backtest/internal/repository"
	"golang-backtest/internal/service"
	"golang-backtest/pkg/logger"
	"net/http"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	log       *logger.Logger
}

func NewHttpAPIHandler(ctx context.Context, echo *echo.Echo, validator *goValidator.Validate, service *service.Service, log *logger.Logger) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      echo,
		validator: validator,
		service:   service,
		log:       log,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	base := h.echo.Group("/api")
	h.SetupBacktest(base)
}

// errorResponse maps engine and repository errors onto HTTP status codes.
func (h *HttpAPIHandler) errorResponse(c echo.Context, err error, data interface{}) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		code = http.StatusNotFound
	case backtest.KindOf(err) == backtest.KindValidation:
		code = http.StatusBadRequest
	case backtest.KindOf(err) == backtest.KindDataUnavailable:
		code = http.StatusUnprocessableEntity
	}

	message := err.Error()
	if code == http.StatusInternalServerError {
		h.log.ErrorContext(c.Request().Context(), "Request failed",
			logger.StringField("path", c.Path()),
			logger.ErrorField(err),
		)
		if backtest.KindOf(err) != backtest.KindPersistence {
			message = "internal server error"
		}
	}
	return c.JSON(code, dto.NewBaseResponse(code, message, data))
}
