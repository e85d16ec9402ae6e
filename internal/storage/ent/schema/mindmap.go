package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
)

// MindMap holds the schema definition for the MindMap entity.
type MindMap struct {
	ent.Schema
}

// Fields of the MindMap.
func (MindMap) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("mind_map_id").
			Unique().
			Immutable(),
		field.String("title").
			NotEmpty(),
		field.String("description").
			Default(""),
		field.String("summary").
			Default(""),
		field.String("prompt").
			Default(""),
		field.String("provider").
			Default(""),
		field.Enum("complexity").
			Values("simple", "moderate", "complex", "detailed", "expert").
			Default("moderate"),
		field.Int("total_nodes").
			Default(0),
		field.Int("max_depth").
			Default(0),
		field.Int64("version").
			Default(0),
		field.Time("created_at").
			Default(time.Now),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the MindMap.
func (MindMap) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("nodes", MapNode.Type),
	}
}
