package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/constants"
	"github.com/enerflow/metering/pkg/httpapi"
	"github.com/enerflow/metering/pkg/serrors"
)

// statusForCode maps structured error codes to HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case serrors.CodeAuthorizationDenied:
		return http.StatusForbidden
	case serrors.CodeNotFound:
		return http.StatusNotFound
	case serrors.CodeValidation:
		return http.StatusBadRequest
	case serrors.CodeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeServiceError renders a service error as a JSON envelope, splitting
// the structured message and detail into their own fields. Errors without a
// structured code are logged and reported as a plain 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var base *serrors.Base
	if errors.As(err, &base) {
		env := httpapi.ErrorEnvelope{
			Code:    base.Code,
			Message: base.Message,
			Details: base.Details,
		}
		_ = env.Write(w, statusForCode(base.Code))
		return
	}
	composables.UseLogger(r.Context()).WithError(err).Error("request failed")
	_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error", nil)
}

// decodeBody parses and validates a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, serrors.CodeValidation, "malformed JSON body", nil)
		return false
	}
	if err := constants.Validate.Struct(dst); err != nil {
		var verr validator.ValidationErrors
		message := "invalid request body"
		if errors.As(err, &verr) && len(verr) > 0 {
			message = "invalid field " + verr[0].Field()
		}
		_ = httpapi.WriteError(w, http.StatusBadRequest, serrors.CodeValidation, message, nil)
		return false
	}
	return true
}

// pathID extracts the numeric {id} route variable.
func pathID(r *http.Request) (uint, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
