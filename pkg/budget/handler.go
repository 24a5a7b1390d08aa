package budget

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/orcaust/orcaust/internal/apperror"
	"github.com/orcaust/orcaust/internal/rest"
	"github.com/orcaust/orcaust/pkg/pricing"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const issueDateLayout = "2006-01-02"

type ItemDTO struct {
	Id                 int    `json:"id"`
	ActivityId         int    `json:"activityId"`
	HoursEstimated     string `json:"hoursEstimated"`
	ComplexitySnapshot string `json:"complexitySnapshot"`
	UnitPriceSnapshot  string `json:"unitPriceSnapshot"`
	Sequence           int    `json:"sequence"`
	SubtotalUst        string `json:"subtotalUst"`
	SubtotalGross      string `json:"subtotalGross"`
	Notes              string `json:"notes,omitempty"`
}

type BudgetDTO struct {
	Id              int       `json:"id"`
	Number          string    `json:"number"`
	ProjectId       int       `json:"projectId"`
	ContractId      int       `json:"contractId"`
	Status          Status    `json:"status"`
	Version         string    `json:"version"`
	DiscountPercent string    `json:"discountPercent"`
	GrossTotal      string    `json:"grossTotal"`
	NetTotal        string    `json:"netTotal"`
	IssueDate       string    `json:"issueDate"`
	Notes           string    `json:"notes,omitempty"`
	Items           []ItemDTO `json:"items"`
}

type ItemRequestDTO struct {
	ActivityId int    `json:"activityId"`
	Hours      string `json:"hours"`
	Notes      string `json:"notes,omitempty"`
}

type BudgetRequestDTO struct {
	ContractId      int              `json:"contractId"`
	ProjectId       int              `json:"projectId"`
	DiscountPercent string           `json:"discountPercent,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	Items           []ItemRequestDTO `json:"items"`
	ExpectedVersion string           `json:"expectedVersion,omitempty"`
}

type HoursRequestDTO struct {
	Hours  string `json:"hours"`
	Reason string `json:"reason,omitempty"`
}

type DiscountRequestDTO struct {
	DiscountPercent string `json:"discountPercent"`
	Reason          string `json:"reason,omitempty"`
}

type Handler struct {
	service  Service
	renderer Renderer
}

func NewHandler(service Service, renderer Renderer) *Handler {
	return &Handler{service, renderer}
}

// Create godoc
// @Summary Create a budget
// @Description Prices the items against the contract unit price and the current catalog.
// @Tags Budget
// @Accept json
// @Produce json
// @Param budget body BudgetRequestDTO true "Budget"
// @Success 201 {object} BudgetDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 404 {object} rest.ErrorResponse "Activity not found"
// @Failure 422 {object} rest.ErrorResponse "Invalid contract, project or hours"
// @Router /api/budgets [post]
// @Security Bearer
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating budget")
	var requestDTO BudgetRequestDTO
	if err := rest.DecodeJSON(r, &requestDTO); err != nil {
		rest.WriteError(w, err)
		return
	}
	request, err := dtoToRequest(requestDTO)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), request)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, budgetToDTO(created))
}

// Get godoc
// @Summary Get a budget
// @Description Draft budgets are returned re-priced against the current catalog.
// @Tags Budget
// @Produce json
// @Param id path int true "Budget ID"
// @Param refresh query bool false "Store the re-priced values"
// @Param Accept header string false "application/json or text/csv"
// @Success 200 {object} BudgetDTO
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/budgets/{id} [get]
// @Security Bearer
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "id")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		refresh, err = strconv.ParseBool(raw)
		if err != nil {
			rest.WriteError(w, apperror.Validationf("invalid refresh"))
			return
		}
	}
	budget, err := h.service.Get(r.Context(), id, refresh)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	if r.Header.Get("Accept") == "text/csv" {
		document, err := h.renderer.Render(budget)
		if err != nil {
			rest.WriteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename=\""+strings.ReplaceAll(budget.Number, "/", "-")+".csv\"")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(document)); err != nil {
			log.Errorf("Error writing budget %d csv response: %v", budget.Id, err)
		}
		return
	}
	rest.WriteJSON(w, http.StatusOK, budgetToDTO(budget))
}

// List godoc
// @Summary List budgets
// @Tags Budget
// @Produce json
// @Param contractId query int false "Contract ID"
// @Param projectId query int false "Project ID"
// @Param status query string false "DRAFT or APPROVED"
// @Param offset query int false "Offset"
// @Param limit query int false "Page size (1-1000, default 100)"
// @Success 200 {array} BudgetDTO
// @Router /api/budgets [get]
// @Security Bearer
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var filter Filter
	var err error
	if filter.ContractId, err = rest.QueryInt(r, "contractId", 0); err != nil {
		rest.WriteError(w, err)
		return
	}
	if filter.ProjectId, err = rest.QueryInt(r, "projectId", 0); err != nil {
		rest.WriteError(w, err)
		return
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		if filter.Status, err = ParseStatus(raw); err != nil {
			rest.WriteError(w, err)
			return
		}
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

	budgets, err := h.service.List(r.Context(), filter, offset, limit)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	budgetDTOs := make([]BudgetDTO, 0, len(budgets))
	for _, budget := range budgets {
		budgetDTOs = append(budgetDTOs, budgetToDTO(budget))
	}
	rest.WriteJSON(w, http.StatusOK, budgetDTOs)
}

// Replace godoc
// @Summary Replace a draft budget
// @Description The If-Match header, or expectedVersion in the body, must carry the current version when given.
// @Tags Budget
// @Accept json
// @Produce json
// @Param id path int true "Budget ID"
// @Param If-Match header string false "Expected version, e.g. 1.2"
// @Param budget body BudgetRequestDTO true "Budget"
// @Success 200 {object} BudgetDTO
// @Failure 409 {object} rest.ErrorResponse "Approved or changed concurrently"
// @Failure 422 {object} rest.ErrorResponse
// @Router /api/budgets/{id} [put]
// @Security Bearer
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "id")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	var requestDTO BudgetRequestDTO
	if err := rest.DecodeJSON(r, &requestDTO); err != nil {
		rest.WriteError(w, err)
		return
	}
	request, err := dtoToRequest(requestDTO)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	expected, err := expectedVersion(r, requestDTO.ExpectedVersion)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	replaced, err := h.service.Replace(r.Context(), id, request, expected)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, budgetToDTO(replaced))
}

// Delete godoc
// @Summary Delete a draft budget
// @Tags Budget
// @Param id path int true "Budget ID"
// @Success 204 "No Content"
// @Failure 403 {object} rest.ErrorResponse
// @Failure 409 {object} rest.ErrorResponse "Budget is approved"
// @Router /api/budgets/{id} [delete]
// @Security Bearer
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "id")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Approve godoc
// @Summary Approve a draft budget
// @Tags Budget
// @Produce json
// @Param id path int true "Budget ID"
// @Success 200 {object} BudgetDTO
// @Failure 403 {object} rest.ErrorResponse
// @Failure 409 {object} rest.ErrorResponse "Already approved"
// @Router /api/budgets/{id}/approve [patch]
// @Security Bearer
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "id")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	approved, err := h.service.Approve(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, budgetToDTO(approved))
}

// UpdateDiscount godoc
// @Summary Change the discount of a draft budget
// @Tags Budget
// @Accept json
// @Produce json
// @Param id path int true "Budget ID"
// @Param discount body DiscountRequestDTO true "Discount"
// @Success 200 {object} BudgetDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 403 {object} rest.ErrorResponse
// @Router /api/budgets/{id}/discount [patch]
// @Security Bearer
func (h *Handler) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "id")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	var requestDTO DiscountRequestDTO
	if err := rest.DecodeJSON(r, &requestDTO); err != nil {
		rest.WriteError(w, err)
		return
	}
	discount, err := pricing.Parse(requestDTO.DiscountPercent)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	updated, err := h.service.UpdateDiscount(r.Context(), id, discount, requestDTO.Reason)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, budgetToDTO(updated))
}

// AddItem godoc
// @Summary Add an item to a draft budget
// @Tags Budget
// @Accept json
// @Produce json
// @Param id path int true "Budget ID"
// @Param item body ItemRequestDTO true "Item"
// @Success 201 {object} BudgetDTO
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/budgets/{id}/items [post]
// @Security Bearer
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "id")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	var itemDTO ItemRequestDTO
	if err := rest.DecodeJSON(r, &itemDTO); err != nil {
		rest.WriteError(w, err)
		return
	}
	input, err := dtoToItemInput(itemDTO)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	updated, err := h.service.AddItem(r.Context(), id, input)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, budgetToDTO(updated))
}

// UpdateItemHours godoc
// @Summary Change the hours of a budget item
// @Tags Budget
// @Accept json
// @Produce json
// @Param id path int true "Budget ID"
// @Param itemId path int true "Item ID"
// @Param hours body HoursRequestDTO true "Hours"
// @Success 200 {object} BudgetDTO
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/budgets/{id}/items/{itemId} [patch]
// @Security Bearer
func (h *Handler) UpdateItemHours(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "id")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	itemId, err := rest.PathInt(r, "itemId")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	var requestDTO HoursRequestDTO
	if err := rest.DecodeJSON(r, &requestDTO); err != nil {
		rest.WriteError(w, err)
		return
	}
	hours, err := pricing.Parse(requestDTO.Hours)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	updated, err := h.service.UpdateItemHours(r.Context(), id, itemId, hours, requestDTO.Reason)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, budgetToDTO(updated))
}

// RemoveItem godoc
// @Summary Remove an item from a draft budget
// @Tags Budget
// @Produce json
// @Param id path int true "Budget ID"
// @Param itemId path int true "Item ID"
// @Success 200 {object} BudgetDTO
// @Failure 422 {object} rest.ErrorResponse "Last item"
// @Router /api/budgets/{id}/items/{itemId} [delete]
// @Security Bearer
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "id")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	itemId, err := rest.PathInt(r, "itemId")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	updated, err := h.service.RemoveItem(r.Context(), id, itemId)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, budgetToDTO(updated))
}

// Refresh godoc
// @Summary Re-price a draft budget against the current catalog and store the result
// @Tags Budget
// @Produce json
// @Param id path int true "Budget ID"
// @Success 200 {object} BudgetDTO
// @Router /api/budgets/{id}/refresh [post]
// @Security Bearer
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "id")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	refreshed, err := h.service.Refresh(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, budgetToDTO(refreshed))
}

// expectedVersion prefers the If-Match header over the body field.
func expectedVersion(r *http.Request, fromBody string) (*Version, error) {
	raw := strings.Trim(r.Header.Get("If-Match"), `"`)
	if raw == "" {
		raw = fromBody
	}
	if raw == "" {
		return nil, nil
	}
	version, err := ParseVersion(raw)
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func budgetToDTO(budget Budget) BudgetDTO {
	items := make([]ItemDTO, 0, len(budget.Items))
	for _, item := range budget.Items {
		items = append(items, ItemDTO{
			Id:                 item.Id,
			ActivityId:         item.ActivityId,
			HoursEstimated:     pricing.Format(item.HoursEstimated),
			ComplexitySnapshot: pricing.Format(item.ComplexitySnapshot),
			UnitPriceSnapshot:  pricing.Format(item.UnitPriceSnapshot),
			Sequence:           item.Sequence,
			SubtotalUst:        pricing.Format(item.SubtotalUst),
			SubtotalGross:      pricing.Format(item.SubtotalGross),
			Notes:              item.Notes,
		})
	}
	return BudgetDTO{
		Id:              budget.Id,
		Number:          budget.Number,
		ProjectId:       budget.ProjectId,
		ContractId:      budget.ContractId,
		Status:          budget.Status,
		Version:         budget.Version.String(),
		DiscountPercent: pricing.Format(budget.DiscountPercent),
		GrossTotal:      pricing.Format(budget.GrossTotal),
		NetTotal:        pricing.Format(budget.NetTotal),
		IssueDate:       budget.IssueDate.Format(issueDateLayout),
		Notes:           budget.Notes,
		Items:           items,
	}
}

func dtoToRequest(dto BudgetRequestDTO) (Request, error) {
	request := Request{
		ContractId:      dto.ContractId,
		ProjectId:       dto.ProjectId,
		DiscountPercent: decimal.Zero,
		Notes:           dto.Notes,
		Items:           make([]ItemInput, 0, len(dto.Items)),
	}
	if dto.DiscountPercent != "" {
		discount, err := pricing.Parse(dto.DiscountPercent)
		if err != nil {
			return Request{}, err
		}
		request.DiscountPercent = discount
	}
	for _, itemDTO := range dto.Items {
		input, err := dtoToItemInput(itemDTO)
		if err != nil {
			return Request{}, err
		}
		request.Items = append(request.Items, input)
	}
	return request, nil
}

func dtoToItemInput(dto ItemRequestDTO) (ItemInput, error) {
	hours, err := pricing.Parse(dto.Hours)
	if err != nil {
		return ItemInput{}, err
	}
	return ItemInput{ActivityId: dto.ActivityId, Hours: hours, Notes: dto.Notes}, nil
}
