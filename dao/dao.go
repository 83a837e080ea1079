// api/dao/dao.go
package dao

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// actorID pulls the acting operator's ID out of the request context for
// audit entries. Background work runs as "system".
func actorID(ctx context.Context) string {
	if v, ok := ctx.Value("userID").(string); ok && v != "" {
		return v
	}
	return "system"
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func boolProp(props map[string]interface{}, key string) bool {
	if v, ok := props[key].(bool); ok {
		return v
	}
	return false
}

func int64Prop(props map[string]interface{}, key string) int64 {
	if v, ok := props[key].(int64); ok {
		return v
	}
	return 0
}

func nodeProps(value interface{}) map[string]interface{} {
	if node, ok := value.(neo4j.Node); ok {
		return node.Props
	}
	return nil
}
