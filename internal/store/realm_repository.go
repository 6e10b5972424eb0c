package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoState reports that no realm state has been saved yet.
var ErrNoState = errors.New("no realm state saved")

// RealmRepository reads and writes the single realm state row.
type RealmRepository struct {
	pool *pgxpool.Pool
}

// NewRealmRepository создаёт repository поверх готового пула.
func NewRealmRepository(pool *pgxpool.Pool) *RealmRepository {
	return &RealmRepository{pool: pool}
}

// Save upserts the encoded state blob.
func (r *RealmRepository) Save(ctx context.Context, st RealmState) error {
	blob, err := Encode(st)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO realm_state (id, version, payload, updated_at)
		 VALUES (1, $1, $2, now())
		 ON CONFLICT (id) DO UPDATE
		 SET version = EXCLUDED.version, payload = EXCLUDED.payload, updated_at = now()`,
		CodecVersion, blob,
	)
	if err != nil {
		return fmt.Errorf("saving realm state: %w", err)
	}
	return nil
}

// Load reads and decodes the state blob. Returns ErrNoState on first run.
func (r *RealmRepository) Load(ctx context.Context) (RealmState, error) {
	var blob []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM realm_state WHERE id = 1`,
	).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return RealmState{}, ErrNoState
	}
	if err != nil {
		return RealmState{}, fmt.Errorf("loading realm state: %w", err)
	}
	return Decode(blob)
}
