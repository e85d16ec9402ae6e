package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MapNode holds the schema definition for the MapNode entity.
type MapNode struct {
	ent.Schema
}

// Fields of the MapNode.
func (MapNode) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("map_node_id").
			Unique().
			Immutable(),
		field.String("parent_id").
			Optional(),
		field.String("title").
			Default(""),
		field.String("content").
			Default(""),
		field.Int("level").
			Default(0).
			NonNegative(),
		field.Int("node_order").
			Default(0),
		field.Float("x").Default(0),
		field.Float("y").Default(0),
		field.Float("width").Default(0),
		field.Float("height").Default(0),
		field.String("color").
			Default(""),
		field.String("shape").
			Default(""),
		field.Bool("is_collapsed").
			Default(false),
		field.JSON("citations", []map[string]string{}).
			Optional(),
	}
}

// Edges of the MapNode.
func (MapNode) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("mind_map", MindMap.Type).
			Ref("nodes").
			Unique(),
	}
}

// Indexes of the MapNode.
func (MapNode) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("parent_id"),
	}
}
