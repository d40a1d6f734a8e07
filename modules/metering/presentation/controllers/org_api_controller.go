package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/enerflow/metering/modules/metering/presentation/controllers/dtos"
	"github.com/enerflow/metering/modules/metering/services"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/httpapi"
	"github.com/enerflow/metering/pkg/serrors"
)

// OrgAPIController serves the caller's slice of the organization: visible
// units and the dashboard summary.
type OrgAPIController struct {
	policy   *services.AccessPolicy
	queries  *services.ItemQueryService
	basePath string
}

func NewOrgAPIController(policy *services.AccessPolicy, queries *services.ItemQueryService) *OrgAPIController {
	return &OrgAPIController{
		policy:   policy,
		queries:  queries,
		basePath: "/api/org",
	}
}

func (c *OrgAPIController) Key() string {
	return c.basePath
}

func (c *OrgAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/units", c.visibleUnits).Methods(http.MethodGet)
	router.HandleFunc("/dashboard", c.dashboard).Methods(http.MethodGet)
}

func (c *OrgAPIController) visibleUnits(w http.ResponseWriter, r *http.Request) {
	a, err := composables.UseActor(r.Context())
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusUnauthorized, serrors.CodeAuthorizationDenied, "no authenticated actor", nil)
		return
	}
	units, err := c.policy.VisibleUnits(r.Context(), a)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewUnitResponses(units))
}

func (c *OrgAPIController) dashboard(w http.ResponseWriter, r *http.Request) {
	board, err := c.queries.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, board)
}
