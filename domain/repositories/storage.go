package repositories

import (
	"context"

	"github.com/voxlate/voxlate/domain/entities"
)

// HistoryStore persists the chat timeline between runs. Implementations store
// only the serializable parts of a turn; audio buffers are never persisted.
type HistoryStore interface {
	Save(ctx context.Context, turns []entities.Turn) error
	Load(ctx context.Context) ([]entities.Turn, error)
	Clear(ctx context.Context) error
}
