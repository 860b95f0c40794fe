package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"restobook/internal/core"
	applog "restobook/internal/log"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	var (
		valErr  *core.ValidationError
		catErr  *core.UnknownCategoryError
		filtErr *core.FilterError
		dupErr  *core.DuplicateRegistrationError
	)
	switch {
	case errors.As(err, &valErr), errors.As(err, &catErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &filtErr):
		return http.StatusBadRequest
	case errors.As(err, &dupErr):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// errorMessages returns what a client may see for err. Store failures are
// logged with their cause and replaced by a generic banner.
func errorMessages(ctx context.Context, op string, err error) (int, []string) {
	status := statusFor(err)
	var valErr *core.ValidationError
	switch {
	case status == http.StatusUnprocessableEntity && errors.As(err, &valErr) && len(valErr.Messages) > 0:
		return status, valErr.Messages
	case status == http.StatusNotFound:
		return status, []string{"Not found"}
	case status == http.StatusInternalServerError:
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Request failed",
			err, applog.ComponentHTTP, op, applog.NewFields().WithErrorType(applog.ErrorTypeDatabase))
		return status, []string{"Could not complete the request. Please try again."}
	}
	return status, []string{err.Error()}
}

// errorResponse renders err as an HTML fragment and raises an error
// notification with its first message.
func errorResponse(ctx context.Context, op string, err error) *HTMXResponseBuilder {
	status, msgs := errorMessages(ctx, op, err)
	var resp *HTMXResponseBuilder
	switch status {
	case http.StatusUnprocessableEntity:
		var valErr *core.ValidationError
		if errors.As(err, &valErr) {
			resp = MessagesResponse(status, msgs)
		} else {
			resp = UnprocessableEntityError(msgs[0])
		}
	case http.StatusBadRequest:
		resp = BadRequestError(msgs[0])
	case http.StatusConflict:
		resp = ConflictError(msgs[0])
	case http.StatusNotFound:
		resp = NotFoundError(msgs[0])
	case http.StatusInternalServerError:
		resp = InternalServerError(msgs[0])
	default:
		resp = ErrorResponse(status, msgs[0])
	}
	return resp.TriggerErrorNotification(strings.TrimPrefix(msgs[0], "- "))
}
