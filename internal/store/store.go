package store

import (
	"context"

	"askyourdocs-client/internal/entity"
)

// Store is the durable mapping from session key to serialized session
// record. Implementations fail soft on Load: absent or malformed data is
// reported as a miss, never as an error. Save overwrites the full prior
// record; callers treat failures as best-effort (logged, not surfaced).
type Store interface {
	Load(ctx context.Context) (*entity.Session, bool)
	Save(ctx context.Context, session *entity.Session) error
}
