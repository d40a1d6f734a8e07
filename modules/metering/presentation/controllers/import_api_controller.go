package controllers

import (
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/enerflow/metering/modules/metering/presentation/controllers/dtos"
	"github.com/enerflow/metering/modules/metering/services"
	"github.com/enerflow/metering/pkg/httpapi"
	"github.com/enerflow/metering/pkg/serrors"
)

// ImportAPIController accepts spreadsheet uploads: register ingestion and
// the two enrichment passes.
type ImportAPIController struct {
	ingest     *services.IngestService
	enrichment *services.EnrichmentService
	queries    *services.ItemQueryService
	maxUpload  int64
	basePath   string
}

func NewImportAPIController(
	ingest *services.IngestService,
	enrichment *services.EnrichmentService,
	queries *services.ItemQueryService,
	maxUpload int64,
) *ImportAPIController {
	return &ImportAPIController{
		ingest:     ingest,
		enrichment: enrichment,
		queries:    queries,
		maxUpload:  maxUpload,
		basePath:   "/api/imports",
	}
}

func (c *ImportAPIController) Key() string {
	return c.basePath
}

func (c *ImportAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.importRegister).Methods(http.MethodPost)
	router.HandleFunc("", c.listRegisters).Methods(http.MethodGet)
	router.HandleFunc("/enrich/contracts", c.enrichByContract).Methods(http.MethodPost)
	router.HandleFunc("/enrich/serials", c.enrichBySerial).Methods(http.MethodPost)
	router.HandleFunc("/lookup/contract", c.lookupContract).Methods(http.MethodPost)
	router.HandleFunc("/lookup/serial", c.lookupSerial).Methods(http.MethodPost)
}

// uploadedFile pulls the "file" part out of a multipart form, bounded by the
// configured upload size.
func (c *ImportAPIController) uploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxUpload)
	if err := r.ParseMultipartForm(c.maxUpload); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, serrors.CodeValidation, "expected a multipart form with a file", nil)
		return nil, "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, serrors.CodeValidation, "missing file part", nil)
		return nil, "", false
	}
	return file, header.Filename, true
}

func (c *ImportAPIController) importRegister(w http.ResponseWriter, r *http.Request) {
	file, filename, ok := c.uploadedFile(w, r)
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	result, err := c.ingest.ImportRegister(r.Context(), file, filename)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, result)
}

func (c *ImportAPIController) listRegisters(w http.ResponseWriter, r *http.Request) {
	regs, err := c.queries.Registers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewRegisterResponses(regs))
}

func (c *ImportAPIController) enrichByContract(w http.ResponseWriter, r *http.Request) {
	file, _, ok := c.uploadedFile(w, r)
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	result, err := c.enrichment.EnrichByContract(r.Context(), file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, result)
}

func (c *ImportAPIController) enrichBySerial(w http.ResponseWriter, r *http.Request) {
	file, _, ok := c.uploadedFile(w, r)
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	result, err := c.enrichment.EnrichBySerial(r.Context(), file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, result)
}

func (c *ImportAPIController) lookupContract(w http.ResponseWriter, r *http.Request) {
	file, _, ok := c.uploadedFile(w, r)
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	rec, err := c.enrichment.LookupByContract(r.Context(), file, r.FormValue("key"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, rec)
}

func (c *ImportAPIController) lookupSerial(w http.ResponseWriter, r *http.Request) {
	file, _, ok := c.uploadedFile(w, r)
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	rec, err := c.enrichment.LookupBySerial(r.Context(), file, r.FormValue("key"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, rec)
}
