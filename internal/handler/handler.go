package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"ku-isoko/internal/middleware"
	"ku-isoko/internal/model"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps a domain error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case model.ErrCodeValidation, model.ErrCodeInvalidJSON, model.ErrCodeInvalidWebhookEvent,
		model.ErrCodeEmptyCart, model.ErrCodeOutOfStock:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeAccessDenied:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound,
		model.ErrCodeCartNotFound, model.ErrCodeCartItemNotFound, model.ErrCodeSellerNotFound,
		model.ErrCodeReviewNotFound:
		return http.StatusNotFound
	case model.ErrCodeConflict, model.ErrCodeAlreadyPaid, model.ErrCodeFulfillmentFailed:
		return http.StatusConflict
	case model.ErrCodeProviderError:
		return http.StatusBadGateway
	case model.ErrCodeFeatureDisabled:
		return http.StatusServiceUnavailable
	case model.ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case model.ErrCodeUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	}
	return http.StatusInternalServerError
}

// writeError translates err into a JSON error response. Errors without a
// domain code are logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	reqID := chimw.GetReqID(r.Context())

	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("handler error")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error:         model.ErrCodeInternalError,
			Message:       "Internal server error",
			CorrelationID: reqID,
		})
		return
	}

	status := statusFor(de.Code)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("request_id", reqID).Str("code", de.Code).Msg("handler error")
	} else {
		logger.Debug().Err(err).Str("request_id", reqID).Str("code", de.Code).Msg("request rejected")
	}

	message := de.Message
	// A wrapped domain error may carry extra detail in its chain.
	if err.Error() != de.Message && status < http.StatusInternalServerError {
		message = err.Error()
	}

	writeJSON(w, status, model.ErrorResponse{
		Error:         de.Code,
		Message:       message,
		CorrelationID: reqID,
	})
}

// decodeJSON reads a JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return model.NewDomainError(model.ErrCodePayloadTooLarge, "Request body too large")
		}
		return model.NewDomainError(model.ErrCodeInvalidJSON, "Invalid request body")
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("failed to validate request: %w", err)
	}
	return model.ValidationError("%s", describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "numeric":
		return field + " must be numeric"
	}
	return field + " is invalid"
}

// uuidParam parses a UUID path parameter.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, model.ValidationError("Invalid %s", name)
	}
	return id, nil
}

// pageFrom reads the page and limit query parameters.
func pageFrom(r *http.Request) (model.PageRequest, error) {
	var p model.PageRequest
	q := r.URL.Query()
	for _, f := range []struct {
		name string
		dst  *int
	}{{"page", &p.Page}, {"limit", &p.Limit}} {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, model.ValidationError("Invalid %s parameter", f.name)
		}
		*f.dst = n
	}
	return p.Normalize(), nil
}

// actorFrom returns the authenticated caller. Routes that reach a handler
// without one are misconfigured.
func actorFrom(r *http.Request) (model.Actor, error) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		return actor, model.ErrUnauthorised
	}
	return actor, nil
}
