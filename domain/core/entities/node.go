package entities

import (
	"time"

	"nodes-backend/domain/core/valueobjects"
)

// NodeIDField is the document field holding a node's identifier. Every
// storage backend addresses nodes through it.
const NodeIDField = "id"

// Node is the document stored in the nodes collection.
// ID is assigned once by NewNode; nothing downstream rewrites it.
type Node struct {
	ID        string    `json:"id" dynamodbav:"id"`
	Title     string    `json:"title,omitempty" dynamodbav:"title,omitempty"`
	Content   string    `json:"content,omitempty" dynamodbav:"content,omitempty"`
	Tags      []string  `json:"tags" dynamodbav:"tags"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
}

// NewNode creates a node with a freshly generated identifier
func NewNode() *Node {
	return &Node{
		ID:        valueobjects.NewNodeID(),
		Tags:      []string{},
		CreatedAt: time.Now().UTC(),
	}
}

// NewNodeWithContent creates a node carrying the given content
func NewNodeWithContent(title, content string, tags []string) *Node {
	node := NewNode()
	node.Title = title
	node.Content = content
	if tags != nil {
		node.Tags = append([]string(nil), tags...)
	}
	return node
}
