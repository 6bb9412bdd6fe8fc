package broker

// ObjectKind names the four object families of the graph.
type ObjectKind string

const (
	ObjectEntity    ObjectKind = "entity"
	ObjectEdge      ObjectKind = "edge"
	ObjectEntityTag ObjectKind = "entity_tag"
	ObjectEdgeTag   ObjectKind = "edge_tag"
)

// Outcome is the change dimension of a committed mutation.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeDeleted Outcome = "deleted"
	OutcomeTouched Outcome = "touched"
)

// ActionKind is the event name on the wire: one value per object kind
// and change dimension, sixteen in total.
type ActionKind string

const (
	EntityCreated ActionKind = "entity_created"
	EntityUpdated ActionKind = "entity_updated"
	EntityDeleted ActionKind = "entity_deleted"
	EntityTouched ActionKind = "entity_touched"

	EdgeCreated ActionKind = "edge_created"
	EdgeUpdated ActionKind = "edge_updated"
	EdgeDeleted ActionKind = "edge_deleted"
	EdgeTouched ActionKind = "edge_touched"

	EntityTagCreated ActionKind = "entity_tag_created"
	EntityTagUpdated ActionKind = "entity_tag_updated"
	EntityTagDeleted ActionKind = "entity_tag_deleted"
	EntityTagTouched ActionKind = "entity_tag_touched"

	EdgeTagCreated ActionKind = "edge_tag_created"
	EdgeTagUpdated ActionKind = "edge_tag_updated"
	EdgeTagDeleted ActionKind = "edge_tag_deleted"
	EdgeTagTouched ActionKind = "edge_tag_touched"
)

// Action combines an object kind and an outcome into the wire action.
func Action(object ObjectKind, outcome Outcome) ActionKind {
	return ActionKind(string(object) + "_" + string(outcome))
}

// Object returns the object-kind dimension of an action.
func (a ActionKind) Object() ObjectKind {
	s := string(a)
	for _, kind := range []ObjectKind{ObjectEntityTag, ObjectEdgeTag, ObjectEntity, ObjectEdge} {
		prefix := string(kind) + "_"
		if len(s) > len(prefix) && s[:len(prefix)] == prefix {
			return kind
		}
	}
	return ""
}

// Outcome returns the change dimension of an action.
func (a ActionKind) Outcome() Outcome {
	s := string(a)
	for _, outcome := range []Outcome{OutcomeCreated, OutcomeUpdated, OutcomeDeleted, OutcomeTouched} {
		suffix := "_" + string(outcome)
		if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
			return outcome
		}
	}
	return ""
}
