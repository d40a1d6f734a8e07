package controllers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/presentation/controllers/dtos"
	"github.com/enerflow/metering/modules/metering/services"
	"github.com/enerflow/metering/pkg/httpapi"
	"github.com/enerflow/metering/pkg/serrors"
)

// ItemAPIController exposes the item fleet: search, cards, transfers,
// approvals and deletion.
type ItemAPIController struct {
	items    *services.ItemService
	queries  *services.ItemQueryService
	basePath string
}

func NewItemAPIController(items *services.ItemService, queries *services.ItemQueryService) *ItemAPIController {
	return &ItemAPIController{
		items:    items,
		queries:  queries,
		basePath: "/api/items",
	}
}

func (c *ItemAPIController) Key() string {
	return c.basePath
}

func (c *ItemAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.list).Methods(http.MethodGet)
	router.HandleFunc("", c.deleteMany).Methods(http.MethodDelete)
	router.HandleFunc("/transfer", c.transfer).Methods(http.MethodPost)
	router.HandleFunc("/approval/request", c.requestApproval).Methods(http.MethodPost)
	router.HandleFunc("/approval/approve", c.approve).Methods(http.MethodPost)
	router.HandleFunc("/approval/reject", c.reject).Methods(http.MethodPost)
	router.HandleFunc("/{id:[0-9]+}", c.get).Methods(http.MethodGet)
	router.HandleFunc("/{id:[0-9]+}", c.update).Methods(http.MethodPatch)
	router.HandleFunc("/{id:[0-9]+}/movements", c.movements).Methods(http.MethodGet)
}

func (c *ItemAPIController) list(w http.ResponseWriter, r *http.Request) {
	query := services.SearchQuery{
		Search: r.URL.Query().Get("search"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	for _, raw := range r.URL.Query()["status"] {
		status, err := item.NewWorkStatus(raw)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, serrors.CodeValidation, "unknown work status "+raw, nil)
			return
		}
		query.Statuses = append(query.Statuses, status)
	}
	if unitID := queryInt(r, "unitId", 0); unitID > 0 {
		id := uint(unitID)
		query.UnitID = &id
	}

	found, total, err := c.queries.Search(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &dtos.ItemListResponse{
		Items: dtos.NewItemResponses(found),
		Total: total,
	})
}

func (c *ItemAPIController) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		_ = httpapi.WriteError(w, http.StatusBadRequest, serrors.CodeValidation, "invalid item id", nil)
		return
	}
	entity, err := c.queries.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewItemResponse(entity))
}

func (c *ItemAPIController) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		_ = httpapi.WriteError(w, http.StatusBadRequest, serrors.CodeValidation, "invalid item id", nil)
		return
	}
	var body dtos.UpdateItemRequest
	if !decodeBody(w, r, &body) {
		return
	}
	patch, err := body.ToPatch()
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, serrors.CodeValidation, err.Error(), nil)
		return
	}
	updated, err := c.items.UpdateAttributes(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewItemResponse(updated))
}

func (c *ItemAPIController) transfer(w http.ResponseWriter, r *http.Request) {
	var body dtos.TransferRequest
	if !decodeBody(w, r, &body) {
		return
	}
	moved, err := c.items.Transfer(r.Context(), body.ItemIDs, body.ToUnitID, body.Comment)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewItemResponses(moved))
}

func (c *ItemAPIController) requestApproval(w http.ResponseWriter, r *http.Request) {
	c.approvalAction(w, r, c.items.RequestApproval)
}

func (c *ItemAPIController) approve(w http.ResponseWriter, r *http.Request) {
	c.approvalAction(w, r, c.items.Approve)
}

func (c *ItemAPIController) reject(w http.ResponseWriter, r *http.Request) {
	c.approvalAction(w, r, c.items.Reject)
}

func (c *ItemAPIController) approvalAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, itemIDs []uint) error,
) {
	var body dtos.ApprovalRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if err := action(r.Context(), body.ItemIDs); err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *ItemAPIController) deleteMany(w http.ResponseWriter, r *http.Request) {
	var body dtos.DeleteItemsRequest
	if !decodeBody(w, r, &body) {
		return
	}
	deleted, err := c.items.Delete(r.Context(), body.ItemIDs, body.AdminCode)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (c *ItemAPIController) movements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		_ = httpapi.WriteError(w, http.StatusBadRequest, serrors.CodeValidation, "invalid item id", nil)
		return
	}
	if _, err := c.queries.GetByID(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	history, err := c.items.Movements(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewMovementResponses(history))
}
