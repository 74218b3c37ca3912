// Package ledger is the PostgreSQL backend of the vote ledger, for deployments where the
// indexer writes Gravity votes to Postgres instead of ClickHouse.
package ledger

import (
	"context"
	"fmt"
	"math"

	"github.com/canopy-network/gravityx/pkg/db/ledger"
	gravitymodels "github.com/canopy-network/gravityx/pkg/db/models/gravity"
	"github.com/canopy-network/gravityx/pkg/db/postgres"
	"github.com/canopy-network/gravityx/pkg/gravity"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ ledger.Store = (*DB)(nil)

// DB is the PostgreSQL implementation of ledger.Store.
type DB struct {
	postgres.Client
	Name string
}

// New connects to the ledger database and optionally creates the tables.
func New(ctx context.Context, logger *zap.Logger, dbName string, initSchema bool, poolConfig *postgres.PoolConfig) (*DB, error) {
	client, err := postgres.New(ctx, logger.With(
		zap.String("db", dbName),
		zap.String("component", poolConfig.Component),
	), dbName, poolConfig)
	if err != nil {
		return nil, err
	}

	db := &DB{Client: client, Name: dbName}
	if initSchema {
		if err := db.InitializeDB(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// InitializeDB creates the ledger tables if missing, in one transaction.
func (db *DB) InitializeDB(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s, PRIMARY KEY (poll_id, vote_id))`,
			gravitymodels.VotesTableName, gravitymodels.ColumnsToPgSchemaSQL(gravitymodels.VoteColumns)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_reveal ON %[1]s(poll_id, revealed_block, vote_id) WHERE candidate_id IS NOT NULL`,
			gravitymodels.VotesTableName),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`,
			gravitymodels.PollsTableName, gravitymodels.ColumnsToPgSchemaSQL(gravitymodels.PollColumns)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`,
			gravitymodels.UsernamesTableName, gravitymodels.ColumnsToPgSchemaSQL(gravitymodels.UsernameColumns)),
	}

	err := db.BeginFunc(ctx, func(tx pgx.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create ledger tables: %w", err)
	}
	db.Logger.Info("Ledger schema ready", zap.String("database", db.Name))
	return nil
}

// ListVotes returns every vote of a poll.
func (db *DB) ListVotes(ctx context.Context, pollID uint64) ([]gravity.Vote, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE poll_id = $1
	`, gravitymodels.ColumnNames(gravitymodels.VoteColumns), gravitymodels.VotesTableName)

	rows, err := db.Query(ctx, query, int64(pollID))
	if err != nil {
		return nil, fmt.Errorf("list votes of poll %d: %w", pollID, err)
	}

	votes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (gravity.Vote, error) {
		var (
			v         gravitymodels.Vote
			candidate *int64
		)
		if err := row.Scan(&v.PollID, &v.VoteID, &v.Voter, &v.Amount, &v.BlockNumber, &v.CreatedAt, &candidate, &v.RevealedBlock); err != nil {
			return gravity.Vote{}, err
		}
		if candidate != nil {
			c, err := candidateID(*candidate)
			if err != nil {
				return gravity.Vote{}, fmt.Errorf("vote %s: %w", v.VoteID, err)
			}
			v.CandidateID = &c
		}
		return v.ToDomain(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan votes of poll %d: %w", pollID, err)
	}
	return votes, nil
}

// GetPollWindow returns the voting window of a poll, gravity.ErrNotFound when unknown.
func (db *DB) GetPollWindow(ctx context.Context, pollID uint64) (gravity.PollWindow, error) {
	query := fmt.Sprintf(`SELECT poll_id, start_date, end_date, updated_at FROM %s WHERE poll_id = $1`, gravitymodels.PollsTableName)

	var p gravitymodels.Poll
	err := db.QueryRow(ctx, query, int64(pollID)).Scan(&p.PollID, &p.StartDate, &p.EndDate, &p.UpdatedAt)
	if postgres.IsNoRows(err) {
		return gravity.PollWindow{}, fmt.Errorf("poll %d: %w", pollID, gravity.ErrNotFound)
	}
	if err != nil {
		return gravity.PollWindow{}, fmt.Errorf("get poll %d: %w", pollID, err)
	}
	return p.Window(), nil
}

// ResolveUsernames maps lower-cased addresses to usernames. Unknown addresses are absent.
func (db *DB) ResolveUsernames(ctx context.Context, addresses []string) (map[string]string, error) {
	out := make(map[string]string, len(addresses))
	if len(addresses) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`SELECT address, username FROM %s WHERE address = ANY($1)`, gravitymodels.UsernamesTableName)
	rows, err := db.Query(ctx, query, addresses)
	if err != nil {
		return nil, fmt.Errorf("resolve usernames: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowToStructByPos[gravitymodels.Username])
	if err != nil {
		return nil, fmt.Errorf("scan usernames: %w", err)
	}
	for _, n := range names {
		if n.Username != "" {
			out[n.Address] = n.Username
		}
	}
	return out, nil
}

// ListRevealsAfter returns up to limit reveals strictly after the given key.
func (db *DB) ListRevealsAfter(ctx context.Context, pollID uint64, after ledger.RevealKey, limit int) ([]ledger.Reveal, error) {
	query := fmt.Sprintf(`
		SELECT vote_id, candidate_id, revealed_block
		FROM %s
		WHERE poll_id = $1
		  AND candidate_id IS NOT NULL
		  AND (revealed_block, vote_id) > ($2, $3)
		ORDER BY revealed_block, vote_id
		LIMIT $4
	`, gravitymodels.VotesTableName)

	rows, err := db.Query(ctx, query, int64(pollID), int64(after.Block), after.VoteID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reveals of poll %d: %w", pollID, err)
	}
	reveals, err := pgx.CollectRows(rows, scanReveal)
	if err != nil {
		return nil, fmt.Errorf("scan reveals of poll %d: %w", pollID, err)
	}
	return reveals, nil
}

// RevealHead returns the key of the latest reveal of a poll; false when nothing is revealed.
func (db *DB) RevealHead(ctx context.Context, pollID uint64) (ledger.RevealKey, bool, error) {
	query := fmt.Sprintf(`
		SELECT vote_id, candidate_id, revealed_block
		FROM %s
		WHERE poll_id = $1 AND candidate_id IS NOT NULL
		ORDER BY revealed_block DESC, vote_id DESC
		LIMIT 1
	`, gravitymodels.VotesTableName)

	rows, err := db.Query(ctx, query, int64(pollID))
	if err != nil {
		return ledger.RevealKey{}, false, fmt.Errorf("reveal head of poll %d: %w", pollID, err)
	}
	head, err := pgx.CollectOneRow(rows, scanReveal)
	if postgres.IsNoRows(err) {
		return ledger.RevealKey{}, false, nil
	}
	if err != nil {
		return ledger.RevealKey{}, false, fmt.Errorf("reveal head of poll %d: %w", pollID, err)
	}
	return head.Key, true, nil
}

func scanReveal(row pgx.CollectableRow) (ledger.Reveal, error) {
	var (
		id        string
		candidate int64
		block     int64
	)
	if err := row.Scan(&id, &candidate, &block); err != nil {
		return ledger.Reveal{}, err
	}
	c, err := candidateID(candidate)
	if err != nil {
		return ledger.Reveal{}, fmt.Errorf("reveal %s: %w", id, err)
	}
	return ledger.Reveal{
		Key:         ledger.RevealKey{Block: uint64(block), VoteID: id},
		VoteID:      id,
		CandidateID: c,
	}, nil
}

// candidateID narrows a BIGINT candidate column to a candidate id.
func candidateID(v int64) (uint32, error) {
	if v < 0 || v > math.MaxUint32 {
		return 0, fmt.Errorf("candidate id %d out of range", v)
	}
	return uint32(v), nil
}
