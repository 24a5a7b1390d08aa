package catalog

import (
	"net/http"

	"github.com/orcaust/orcaust/internal/rest"
	"github.com/orcaust/orcaust/pkg/pricing"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type NodeDTO struct {
	Id         int     `json:"id"`
	Name       string  `json:"name"`
	Type       Type    `json:"type"`
	ParentId   *int    `json:"parentId,omitempty"`
	Complexity *string `json:"complexity,omitempty"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

// Create godoc
// @Summary Create a catalog node
// @Tags Catalog
// @Accept json
// @Produce json
// @Param node body NodeDTO true "Catalog node"
// @Success 201 {object} NodeDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 403 {object} rest.ErrorResponse
// @Failure 422 {object} rest.ErrorResponse "Invalid hierarchy"
// @Router /api/catalog [post]
// @Security Bearer
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating catalog node")
	var nodeDTO NodeDTO
	if err := rest.DecodeJSON(r, &nodeDTO); err != nil {
		rest.WriteError(w, err)
		return
	}
	node, err := dtoToNode(nodeDTO)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), node)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, nodeToDTO(created))
}

// Get godoc
// @Summary Get a catalog node
// @Tags Catalog
// @Produce json
// @Param id path int true "Node ID"
// @Success 200 {object} NodeDTO
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/catalog/{id} [get]
// @Security Bearer
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "id")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	node, err := h.service.Get(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, nodeToDTO(node))
}

// List godoc
// @Summary List catalog nodes
// @Tags Catalog
// @Produce json
// @Param type query string false "CYCLE, PHASE or ACTIVITY"
// @Param parentId query int false "Parent node ID"
// @Param offset query int false "Offset"
// @Param limit query int false "Page size (1-1000, default 100)"
// @Success 200 {array} NodeDTO
// @Router /api/catalog [get]
// @Security Bearer
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{Type: Type(r.URL.Query().Get("type"))}
	parentId, err := rest.QueryInt(r, "parentId", 0)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	if parentId > 0 {
		filter.ParentId = &parentId
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

	nodes, err := h.service.List(r.Context(), filter, offset, limit)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	nodeDTOs := make([]NodeDTO, 0, len(nodes))
	for _, node := range nodes {
		nodeDTOs = append(nodeDTOs, nodeToDTO(node))
	}
	rest.WriteJSON(w, http.StatusOK, nodeDTOs)
}

// Update godoc
// @Summary Update a catalog node
// @Description Name, parent and complexity can change. The type is immutable.
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path int true "Node ID"
// @Param node body NodeDTO true "Catalog node"
// @Success 200 {object} NodeDTO
// @Failure 404 {object} rest.ErrorResponse
// @Failure 422 {object} rest.ErrorResponse "Invalid hierarchy"
// @Router /api/catalog/{id} [put]
// @Security Bearer
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "id")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	var nodeDTO NodeDTO
	if err := rest.DecodeJSON(r, &nodeDTO); err != nil {
		rest.WriteError(w, err)
		return
	}
	node, err := dtoToNode(nodeDTO)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	node.Id = id
	updated, err := h.service.Update(r.Context(), node)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, nodeToDTO(updated))
}

// Delete godoc
// @Summary Delete a catalog node
// @Tags Catalog
// @Param id path int true "Node ID"
// @Success 204 "No Content"
// @Failure 409 {object} rest.ErrorResponse "Node has children"
// @Router /api/catalog/{id} [delete]
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

func nodeToDTO(node Node) NodeDTO {
	dto := NodeDTO{
		Id:       node.Id,
		Name:     node.Name,
		Type:     node.Type,
		ParentId: node.ParentId,
	}
	if node.Complexity.Valid {
		complexity := pricing.Format(node.Complexity.Decimal)
		dto.Complexity = &complexity
	}
	return dto
}

func dtoToNode(dto NodeDTO) (Node, error) {
	node := Node{
		Id:       dto.Id,
		Name:     dto.Name,
		Type:     dto.Type,
		ParentId: dto.ParentId,
	}
	if dto.Complexity != nil {
		complexity, err := pricing.Parse(*dto.Complexity)
		if err != nil {
			return Node{}, err
		}
		node.Complexity = decimal.NewNullDecimal(complexity)
	}
	return node, nil
}
