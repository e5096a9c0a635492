package handlers

import (
	"context"
	"net/http"
	"time"

	"nodes-backend/domain/core/entities"
	"nodes-backend/domain/core/valueobjects"
	"nodes-backend/pkg/auth"
	"nodes-backend/pkg/common"
	apperrors "nodes-backend/pkg/errors"
	"nodes-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NodeService is the node CRUD surface the handler drives
type NodeService interface {
	Create(ctx context.Context, node *entities.Node) error
	Read(ctx context.Context, id string) (*entities.Node, error)
	Update(ctx context.Context, id string, node *entities.Node) error
	Delete(ctx context.Context, id string) error
}

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	nodes  NodeService
	errors *apperrors.ErrorHandler
	logger *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(nodes NodeService, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{
		nodes:  nodes,
		errors: errorHandler,
		logger: logger,
	}
}

// CreateNodeRequest represents the request body for creating a node
type CreateNodeRequest struct {
	Title   string   `json:"title,omitempty" validate:"max=200"`
	Content string   `json:"content,omitempty" validate:"max=20000"`
	Tags    []string `json:"tags,omitempty" validate:"max=10,dive,notblank,max=50"`
}

// UpdateNodeRequest is the full replacement document for a node. An omitted
// id falls back to the path id; an omitted createdAt becomes the current time.
type UpdateNodeRequest struct {
	ID        string     `json:"id,omitempty" validate:"omitempty,uuid"`
	Title     string     `json:"title,omitempty" validate:"max=200"`
	Content   string     `json:"content,omitempty" validate:"max=20000"`
	Tags      []string   `json:"tags,omitempty" validate:"max=10,dive,notblank,max=50"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// CreateNode handles POST /nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	node := entities.NewNodeWithContent(req.Title, req.Content, req.Tags)
	if err := h.nodes.Create(r.Context(), node); err != nil {
		h.errors.Handle(w, r, apperrors.FromStorage("InsertOne", "node", err))
		return
	}

	h.logger.Debug("Node created", writeFields(r, node.ID)...)
	w.Header().Set("Location", "/api/v1/nodes/"+node.ID)
	common.RespondJSON(w, r, http.StatusCreated, node)
}

// GetNode handles GET /nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathNodeID(w, r)
	if !ok {
		return
	}

	node, err := h.nodes.Read(r.Context(), id)
	if err != nil {
		h.errors.Handle(w, r, apperrors.FromStorage("FindOne", "node", err))
		return
	}
	if node == nil {
		h.errors.Handle(w, r, apperrors.NewNotFoundError("node"))
		return
	}

	common.RespondJSON(w, r, http.StatusOK, node)
}

// UpdateNode handles PUT /nodes/{nodeID}. The stored node is replaced
// wholesale; nothing from the previous version is merged in.
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathNodeID(w, r)
	if !ok {
		return
	}

	var req UpdateNodeRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	node := &entities.Node{
		ID:        req.ID,
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		CreatedAt: time.Now().UTC(),
	}
	if node.ID == "" {
		node.ID = id
	}
	if node.Tags == nil {
		node.Tags = []string{}
	}
	if req.CreatedAt != nil {
		node.CreatedAt = req.CreatedAt.UTC()
	}

	if err := h.nodes.Update(r.Context(), id, node); err != nil {
		h.errors.Handle(w, r, apperrors.FromStorage("ReplaceOne", "node", err))
		return
	}

	h.logger.Debug("Node replaced", writeFields(r, id)...)
	common.RespondJSON(w, r, http.StatusOK, node)
}

// DeleteNode handles DELETE /nodes/{nodeID}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathNodeID(w, r)
	if !ok {
		return
	}

	if err := h.nodes.Delete(r.Context(), id); err != nil {
		h.errors.Handle(w, r, apperrors.FromStorage("DeleteOne", "node", err))
		return
	}

	h.logger.Debug("Node deleted", writeFields(r, id)...)
	common.RespondNoContent(w)
}

func (h *NodeHandler) pathNodeID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := valueobjects.ParseNodeID(chi.URLParam(r, "nodeID"))
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return "", false
	}
	return id, true
}

// writeFields identifies the node and, behind the auth middleware, the caller
func writeFields(r *http.Request, nodeID string) []zap.Field {
	fields := []zap.Field{zap.String("nodeID", nodeID)}
	if user, err := auth.GetUserFromContext(r.Context()); err == nil {
		fields = append(fields, zap.String("userID", user.UserID))
	}
	return fields
}
