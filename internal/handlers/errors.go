package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/maxg-dev/santiscl/internal/platform/httpx"
	"github.com/maxg-dev/santiscl/internal/platform/requestctx"
	"github.com/maxg-dev/santiscl/internal/services"
	"go.uber.org/zap"
)

const (
	msgBackendUnavailable = "Firebase no configurado. Por favor configura las variables de entorno."
	msgProductNotFound    = "Producto no encontrado"
	msgVariantNotFound    = "Variante no encontrada"
	msgInvalidInput       = "Los datos enviados no son válidos"
	msgImageType          = "Solo se permiten archivos de imagen"
	msgImageTooLarge      = "El archivo es demasiado grande. Máximo 5MB."
	msgWeakPassword       = "La contraseña debe tener al menos 6 caracteres"
	msgInvalidCredentials = "Correo o contraseña incorrectos"
	msgNotAdmin           = "No tienes permisos de administrador"
	msgAuthUnavailable    = "No se pudo verificar la sesión. Intenta nuevamente."
	msgInternal           = "Ocurrió un error inesperado"
)

// writeServiceError translates service sentinels into the JSON error envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var inputErr *services.InputError
	switch {
	case errors.As(err, &inputErr):
		httpErr := httpx.NewError("invalid_request", msgInvalidInput, http.StatusBadRequest).WithFields(inputErr.Fields)
		if inputErr.Reason != "" && len(inputErr.Fields) == 0 {
			httpErr.Message = inputErr.Reason
		}
		httpx.WriteError(ctx, w, httpErr)
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("backend_unavailable", msgBackendUnavailable, http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", msgProductNotFound, http.StatusNotFound))
	case errors.Is(err, services.ErrVariantNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("variant_not_found", msgVariantNotFound, http.StatusNotFound))
	case errors.Is(err, services.ErrImageType):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_image_type", msgImageType, http.StatusBadRequest))
	case errors.Is(err, services.ErrImageTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("image_too_large", msgImageTooLarge, http.StatusRequestEntityTooLarge))
	case errors.Is(err, services.ErrWeakPassword):
		httpx.WriteError(ctx, w, httpx.NewError("weak_password", msgWeakPassword, http.StatusBadRequest))
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", msgInvalidCredentials, http.StatusUnauthorized))
	case errors.Is(err, services.ErrNotAdmin):
		httpx.WriteError(ctx, w, httpx.NewError("not_admin", msgNotAdmin, http.StatusForbidden))
	case errors.Is(err, services.ErrAuthUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("auth_unavailable", msgAuthUnavailable, http.StatusServiceUnavailable))
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("timeout", "La solicitud tardó demasiado", http.StatusGatewayTimeout))
	default:
		requestctx.Logger(ctx).Error("unhandled service error", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal", msgInternal, http.StatusInternalServerError))
	}
}

func writeUnavailable(ctx context.Context, w http.ResponseWriter, name string) {
	httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", name+" service unavailable", http.StatusServiceUnavailable))
}

func writeBadRequest(ctx context.Context, w http.ResponseWriter, err error) {
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
}
