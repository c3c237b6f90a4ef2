// Package orm implements the upsert and lookup discipline shared by every
// entity kind the registry persists. A Mapper pairs a Table, the relational
// backend for one storage model, with a Mapping that converts between the
// domain entity and that model.
package orm

import (
	"context"
	"fmt"
	"log/slog"
)

// Where is a column-equality predicate. A nil value matches NULL only.
type Where map[string]any

// Table is the relational backend for one storage model. FindOne returns
// nil, nil when no row matches.
type Table[M any] interface {
	FindOne(ctx context.Context, where Where) (*M, error)
	Find(ctx context.Context, where Where) ([]*M, error)
	Create(ctx context.Context, model *M) error
	Update(ctx context.Context, model *M) error
	Remove(ctx context.Context, where Where) (int64, error)
}

// Mapping converts between an entity E and its storage model M.
type Mapping[E any, M any] struct {
	// EntityID returns the internal identifier, zero when unsaved
	EntityID func(*E) int64
	// ModelID returns the identifier assigned by storage
	ModelID func(*M) int64
	// ToModel copies the entity's fields onto the model, leaving the model's
	// identifier alone
	ToModel func(*E, *M)
	// ToEntity builds a new entity from a stored model
	ToEntity func(*M) *E
}

// SaveOutcome tells which branch of an upsert was taken.
type SaveOutcome int

const (
	// SaveInserted means a new record was created
	SaveInserted SaveOutcome = iota + 1
	// SaveUpdated means the existing record was overwritten
	SaveUpdated
	// SaveSkippedMissing means the entity had an identifier but its record
	// no longer exists; nothing was written
	SaveSkippedMissing
)

func (o SaveOutcome) String() string {
	switch o {
	case SaveInserted:
		return "inserted"
	case SaveUpdated:
		return "updated"
	case SaveSkippedMissing:
		return "skipped_missing"
	default:
		return fmt.Sprintf("SaveOutcome(%d)", int(o))
	}
}

// SaveResult reports the outcome of Mapper.Save. ID is the identifier of the
// record written, or of the entity when the save was skipped.
type SaveResult struct {
	Outcome SaveOutcome
	ID      int64
}

// Inserted reports whether the save created a new record.
func (r SaveResult) Inserted() bool {
	return r.Outcome == SaveInserted
}

// Mapper applies the upsert discipline for one entity kind.
type Mapper[E any, M any] struct {
	kind    string
	table   Table[M]
	mapping Mapping[E, M]
	logger  *slog.Logger
}

// NewMapper creates a mapper. kind names the entity in logs and errors.
func NewMapper[E any, M any](kind string, table Table[M], mapping Mapping[E, M], logger *slog.Logger) *Mapper[E, M] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper[E, M]{
		kind:    kind,
		table:   table,
		mapping: mapping,
		logger:  logger,
	}
}

// Save inserts the entity when it has no identifier and updates its record
// otherwise. An update whose record has disappeared is skipped without
// error so that retries stay idempotent. The entity is never modified; the
// caller re-reads it to pick up a new identifier.
func (m *Mapper[E, M]) Save(ctx context.Context, entity *E) (SaveResult, error) {
	if id := m.mapping.EntityID(entity); id != 0 {
		model, err := m.table.FindOne(ctx, Where{"id": id})
		if err != nil {
			return SaveResult{}, fmt.Errorf("failed to load %s %d: %w", m.kind, id, err)
		}
		if model == nil {
			m.logger.WarnContext(ctx, "record missing on update, skipped", "kind", m.kind, "id", id)
			return SaveResult{Outcome: SaveSkippedMissing, ID: id}, nil
		}
		m.mapping.ToModel(entity, model)
		if err := m.table.Update(ctx, model); err != nil {
			return SaveResult{}, fmt.Errorf("failed to update %s %d: %w", m.kind, id, err)
		}
		return SaveResult{Outcome: SaveUpdated, ID: id}, nil
	}

	model := new(M)
	m.mapping.ToModel(entity, model)
	if err := m.table.Create(ctx, model); err != nil {
		return SaveResult{}, fmt.Errorf("failed to create %s: %w", m.kind, err)
	}
	id := m.mapping.ModelID(model)
	m.logger.InfoContext(ctx, "created record", "kind", m.kind, "id", id)
	return SaveResult{Outcome: SaveInserted, ID: id}, nil
}

// FindOne returns the first entity matching where, or nil.
func (m *Mapper[E, M]) FindOne(ctx context.Context, where Where) (*E, error) {
	model, err := m.table.FindOne(ctx, where)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", m.kind, err)
	}
	if model == nil {
		return nil, nil
	}
	return m.mapping.ToEntity(model), nil
}

// Find returns every entity matching where in storage order.
func (m *Mapper[E, M]) Find(ctx context.Context, where Where) ([]*E, error) {
	models, err := m.table.Find(ctx, where)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", m.kind, err)
	}
	entities := make([]*E, len(models))
	for i, model := range models {
		entities[i] = m.mapping.ToEntity(model)
	}
	return entities, nil
}

// Remove deletes every record matching where and returns the row count.
// Matching nothing is not an error.
func (m *Mapper[E, M]) Remove(ctx context.Context, where Where) (int64, error) {
	n, err := m.table.Remove(ctx, where)
	if err != nil {
		return 0, fmt.Errorf("failed to remove %s: %w", m.kind, err)
	}
	m.logger.InfoContext(ctx, "removed records", "kind", m.kind, "rows", n, "where", map[string]any(where))
	return n, nil
}
