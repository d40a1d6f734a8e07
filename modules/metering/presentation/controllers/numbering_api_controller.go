package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/enerflow/metering/modules/metering/presentation/controllers/dtos"
	"github.com/enerflow/metering/modules/metering/services"
	"github.com/enerflow/metering/pkg/httpapi"
	"github.com/enerflow/metering/pkg/serrors"
)

// NumberingAPIController stamps batches with sequential document codes.
type NumberingAPIController struct {
	numbering *services.NumberingService
	basePath  string
}

func NewNumberingAPIController(numbering *services.NumberingService) *NumberingAPIController {
	return &NumberingAPIController{
		numbering: numbering,
		basePath:  "/api/numbering",
	}
}

func (c *NumberingAPIController) Key() string {
	return c.basePath
}

func (c *NumberingAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/spec-codes", c.assignSpecCodes).Methods(http.MethodPost)
	router.HandleFunc("/spec-codes/eligible", c.eligible).Methods(http.MethodGet)
	router.HandleFunc("/request-codes", c.assignRequestCode).Methods(http.MethodPost)
	router.HandleFunc("/request-codes/next", c.nextRequestCode).Methods(http.MethodGet)
}

func (c *NumberingAPIController) assignSpecCodes(w http.ResponseWriter, r *http.Request) {
	var body dtos.AssignSpecCodesRequest
	if !decodeBody(w, r, &body) {
		return
	}
	code, err := c.numbering.AssignSpecCodes(r.Context(), body.ItemIDs, body.UnitID, body.PowerCategory)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &dtos.CodeResponse{Code: code})
}

func (c *NumberingAPIController) eligible(w http.ResponseWriter, r *http.Request) {
	unitID := queryInt(r, "unitId", 0)
	category := queryInt(r, "powerCategory", 0)
	if unitID <= 0 || category < 1 || category > 3 {
		_ = httpapi.WriteError(w, http.StatusBadRequest, serrors.CodeValidation, "unitId and powerCategory are required", nil)
		return
	}
	found, err := c.numbering.EligibleForSpecCode(r.Context(), uint(unitID), category)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewItemResponses(found))
}

func (c *NumberingAPIController) assignRequestCode(w http.ResponseWriter, r *http.Request) {
	var body dtos.AssignRequestCodeRequest
	if !decodeBody(w, r, &body) {
		return
	}
	code, err := c.numbering.AssignRequestCode(r.Context(), body.ItemIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &dtos.CodeResponse{Code: code})
}

func (c *NumberingAPIController) nextRequestCode(w http.ResponseWriter, r *http.Request) {
	code, err := c.numbering.NextRequestCode(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &dtos.CodeResponse{Code: code})
}
