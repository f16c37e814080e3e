package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stakingScope/internal/model"
)

// Store provides Postgres persistence for cores, snapshots, plans and
// preferences. Amounts are stored as NUMERIC via their decimal strings.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertCores inserts or updates core metadata.
func (s *Store) UpsertCores(ctx context.Context, cores []model.StakingCore) error {
	if len(cores) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, core := range cores {
		batch.Queue(`
			INSERT INTO cores (core_id, owner, name, description, image_url, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (core_id)
			DO UPDATE SET
				owner = EXCLUDED.owner,
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				image_url = EXCLUDED.image_url,
				updated_at = now()
		`,
			int64(core.ID),
			core.Owner,
			core.Metadata.Name,
			core.Metadata.Description,
			core.Metadata.ImageURL,
		)
	}
	return s.sendBatch(ctx, batch, len(cores))
}

// InsertSnapshots upserts era snapshots keyed by core and era.
func (s *Store) InsertSnapshots(ctx context.Context, snapshots []model.EraSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO era_snapshots (
				core_id, era, total_staked, number_of_stakers, reward_claimed, active, created_at, updated_at
			) VALUES ($1, $2, $3::numeric, $4, $5, $6, now(), now())
			ON CONFLICT (core_id, era)
			DO UPDATE SET
				total_staked = EXCLUDED.total_staked,
				number_of_stakers = EXCLUDED.number_of_stakers,
				reward_claimed = EXCLUDED.reward_claimed,
				active = EXCLUDED.active,
				updated_at = now()
		`,
			int64(snap.CoreID),
			int64(snap.Era),
			model.FormatAmount(snap.TotalStaked),
			int64(snap.NumberOfStakers),
			snap.RewardClaimed,
			snap.Active,
		)
	}
	return s.sendBatch(ctx, batch, len(snapshots))
}

// RecordPlan stores a built plan with its ops as JSON.
func (s *Store) RecordPlan(ctx context.Context, plan model.ClaimBatchPlan) error {
	record := model.NewPlanRecord(plan, time.Now())
	ops, err := json.Marshal(record.Ops)
	if err != nil {
		return fmt.Errorf("marshal plan ops: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO claim_plans (account, era, claim_ops, restake_ops, ops, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, plan.Account, int64(plan.Era), countClaims(plan), len(plan.Restakes()), ops)
	return err
}

func countClaims(plan model.ClaimBatchPlan) int {
	n := 0
	for _, c := range plan.ClaimCount() {
		n += c
	}
	return n
}

// LoadPreference returns the auto-restake flag stored under name.
func (s *Store) LoadPreference(ctx context.Context, name string) (bool, bool, error) {
	if name == "" {
		return false, false, fmt.Errorf("preference name required")
	}
	var restake bool
	row := s.pool.QueryRow(ctx, `SELECT auto_restake FROM preferences WHERE name=$1`, name)
	if err := row.Scan(&restake); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, false, nil
		}
		return false, false, err
	}
	return restake, true, nil
}

// SavePreference upserts the auto-restake flag for name.
func (s *Store) SavePreference(ctx context.Context, name string, restake bool) error {
	if name == "" {
		return fmt.Errorf("preference name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO preferences (name, auto_restake, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET auto_restake = EXCLUDED.auto_restake, updated_at = now()
	`, name, restake)
	return err
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
