package progress

import "context"

// Collections used by the progress layer.
const (
	CollectionUsers       = "users"
	CollectionLeaderboard = "leaderboard"
)

// OpKind names a field operation applied by Store.Update.
type OpKind string

const (
	// OpSet replaces the field value.
	OpSet OpKind = "set"
	// OpInc adds a numeric delta to the field (missing field counts as 0).
	OpInc OpKind = "inc"
	// OpMax keeps the larger of the stored value and the operand.
	OpMax OpKind = "max"
	// OpAppend appends an element to an array field.
	OpAppend OpKind = "append"
)

// FieldOp is one mutation of a document field. Path may be nested with
// dots ("stats.bestScore").
type FieldOp struct {
	Path  string
	Kind  OpKind
	Value any
}

func SetField(path string, value any) FieldOp {
	return FieldOp{Path: path, Kind: OpSet, Value: value}
}

func IncField(path string, delta float64) FieldOp {
	return FieldOp{Path: path, Kind: OpInc, Value: delta}
}

func MaxField(path string, value float64) FieldOp {
	return FieldOp{Path: path, Kind: OpMax, Value: value}
}

func AppendField(path string, elem any) FieldOp {
	return FieldOp{Path: path, Kind: OpAppend, Value: elem}
}

// Store is the abstract key-document store the progress layer runs
// against. Documents are JSON-shaped; in and out values are marshalled
// through encoding/json. Implementations must apply Update atomically per
// document: concurrent Updates on the same document may interleave in any
// order but none may be lost.
type Store interface {
	// Get decodes the document into out, or returns domain.ErrNotFound.
	Get(ctx context.Context, collection, id string, out any) error
	// Set fully replaces (or creates) the document.
	Set(ctx context.Context, collection, id string, doc any) error
	// Create stores a new document, or returns domain.ErrConflict if one
	// already exists.
	Create(ctx context.Context, collection, id string, doc any) error
	// Update applies the field ops to an existing document atomically, or
	// returns domain.ErrNotFound when the document is absent.
	Update(ctx context.Context, collection, id string, ops ...FieldOp) error
	// TopN decodes into out (a pointer to a slice) the documents of the
	// collection ordered by the named numeric field descending, truncated
	// to limit. Tie order is store-defined.
	TopN(ctx context.Context, collection, orderBy string, limit int, out any) error
}
