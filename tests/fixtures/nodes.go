// Package fixtures holds shared test builders.
package fixtures

import (
	"time"

	"nodes-backend/domain/core/entities"
	"nodes-backend/domain/core/valueobjects"
)

// FixedTime is the creation timestamp every built node carries
var FixedTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// NodeBuilder builds nodes for tests
type NodeBuilder struct {
	node entities.Node
}

// NewNodeBuilder starts a builder with a fresh identifier
func NewNodeBuilder() *NodeBuilder {
	return &NodeBuilder{node: entities.Node{
		ID:        valueobjects.NewNodeID(),
		Title:     "Test Node",
		Content:   "Test content",
		Tags:      []string{},
		CreatedAt: FixedTime,
	}}
}

// WithID sets the identifier
func (b *NodeBuilder) WithID(id string) *NodeBuilder {
	b.node.ID = id
	return b
}

// WithTitle sets the title
func (b *NodeBuilder) WithTitle(title string) *NodeBuilder {
	b.node.Title = title
	return b
}

// WithContent sets the content
func (b *NodeBuilder) WithContent(content string) *NodeBuilder {
	b.node.Content = content
	return b
}

// WithTags sets the tags
func (b *NodeBuilder) WithTags(tags ...string) *NodeBuilder {
	b.node.Tags = tags
	return b
}

// Build returns a new node
func (b *NodeBuilder) Build() *entities.Node {
	node := b.node
	node.Tags = append([]string{}, b.node.Tags...)
	return &node
}
