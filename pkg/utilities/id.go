package utilities

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// IDGenerator produces request IDs. It uses a snowflake node when one could be
// created and falls back to KSUIDs otherwise. Safe for concurrent use.
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator creates a generator for the given snowflake node ID.
func NewIDGenerator(nodeID int64) *IDGenerator {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return &IDGenerator{}
	}
	return &IDGenerator{node: node}
}

// NodeIDFromEnv reads SNOWFLAKE_NODE, defaulting to node 1.
func NodeIDFromEnv() int64 {
	nodeID, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64)
	if err != nil {
		return 1
	}
	return nodeID
}

// Next returns a new unique ID.
func (g *IDGenerator) Next() string {
	if g == nil || g.node == nil {
		return ksuid.New().String()
	}
	return g.node.Generate().String()
}
