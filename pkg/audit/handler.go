package audit

import (
	"context"
	"net/http"

	"github.com/orcaust/orcaust/internal/rest"
	"github.com/orcaust/orcaust/pkg/pricing"
)

type RecordDTO struct {
	Id            int        `json:"id"`
	ChangeKind    ChangeKind `json:"changeKind"`
	BudgetId      int        `json:"budgetId"`
	ItemId        *int       `json:"itemId,omitempty"`
	ActorId       *int       `json:"actorId,omitempty"`
	PreviousValue string     `json:"previousValue"`
	NewValue      string     `json:"newValue"`
	ChangedAt     string     `json:"changedAt"`
	Reason        string     `json:"reason,omitempty"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

// ListByBudget godoc
// @Summary List audit records of a budget, newest first
// @Tags Audit
// @Produce json
// @Param id path int true "Budget ID"
// @Param offset query int false "Offset"
// @Param limit query int false "Page size (1-100, default 50)"
// @Success 200 {array} RecordDTO
// @Router /api/audit/budgets/{id} [get]
// @Security Bearer
func (h *Handler) ListByBudget(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "id", h.service.ListByBudget)
}

// ListByItem godoc
// @Summary List audit records of a budget item, newest first
// @Tags Audit
// @Produce json
// @Param itemId path int true "Budget item ID"
// @Param offset query int false "Offset"
// @Param limit query int false "Page size (1-100, default 50)"
// @Success 200 {array} RecordDTO
// @Router /api/audit/items/{itemId} [get]
// @Security Bearer
func (h *Handler) ListByItem(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "itemId", h.service.ListByItem)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, idVar string,
	fetch func(ctx context.Context, id, offset, limit int) ([]Record, error)) {
	id, err := rest.PathInt(r, idVar)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	offset, err := rest.QueryInt(r, "offset", 0)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	limit, err := rest.QueryInt(r, "limit", 0)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	records, err := fetch(r.Context(), id, offset, limit)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	recordDTOs := make([]RecordDTO, 0, len(records))
	for _, record := range records {
		recordDTOs = append(recordDTOs, recordToDTO(record))
	}
	rest.WriteJSON(w, http.StatusOK, recordDTOs)
}

func recordToDTO(record Record) RecordDTO {
	return RecordDTO{
		Id:            record.Id,
		ChangeKind:    record.Kind,
		BudgetId:      record.BudgetId,
		ItemId:        record.ItemId,
		ActorId:       record.ActorId,
		PreviousValue: pricing.Format(record.PreviousValue),
		NewValue:      pricing.Format(record.NewValue),
		ChangedAt:     FormatTimestamp(record.ChangedAt),
		Reason:        record.Reason,
	}
}
