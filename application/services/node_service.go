package services

import (
	"context"

	"nodes-backend/domain/core/entities"
	"nodes-backend/infrastructure/persistence/abstractions"
)

// NodesService maps node CRUD calls onto single-document collection calls.
// Errors from the collection are returned as-is.
type NodesService struct {
	nodes abstractions.Collection[*entities.Node]
}

// NewNodesService creates a new nodes service
func NewNodesService(nodes abstractions.Collection[*entities.Node]) *NodesService {
	return &NodesService{nodes: nodes}
}

// Create inserts the node unmodified
func (s *NodesService) Create(ctx context.Context, node *entities.Node) error {
	return s.nodes.InsertOne(ctx, node)
}

// Read returns the node whose identifier equals id, or whatever absence
// signal the collection produces
func (s *NodesService) Read(ctx context.Context, id string) (*entities.Node, error) {
	return s.nodes.FindOne(ctx, byNodeID(id))
}

// Update replaces the node whose identifier equals id with node.
// node.ID is not compared against id.
func (s *NodesService) Update(ctx context.Context, id string, node *entities.Node) error {
	return s.nodes.ReplaceOne(ctx, byNodeID(id), node)
}

// Delete removes the node whose identifier equals id
func (s *NodesService) Delete(ctx context.Context, id string) error {
	return s.nodes.DeleteOne(ctx, byNodeID(id))
}

func byNodeID(id string) abstractions.Filter {
	return abstractions.ByID(entities.NodeIDField, id)
}
