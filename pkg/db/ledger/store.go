// Package ledger reads the indexed Gravity vote ledger from ClickHouse: votes, poll windows,
// the reveal feed and voter usernames. Rows are written by the chain indexer.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/gravityx/pkg/db/clickhouse"
	gravitymodels "github.com/canopy-network/gravityx/pkg/db/models/gravity"
	"github.com/canopy-network/gravityx/pkg/gravity"
	"go.uber.org/zap"
)

// RevealKey is a position in the reveal feed: reveals are ordered by (Block, VoteID).
type RevealKey struct {
	Block  uint64
	VoteID string
}

// Reveal is one entry of the reveal feed.
type Reveal struct {
	Key         RevealKey
	VoteID      string
	CandidateID uint32
}

// Store is the read side of the vote ledger.
type Store interface {
	ListVotes(ctx context.Context, pollID uint64) ([]gravity.Vote, error)
	GetPollWindow(ctx context.Context, pollID uint64) (gravity.PollWindow, error)
	ResolveUsernames(ctx context.Context, addresses []string) (map[string]string, error)
	ListRevealsAfter(ctx context.Context, pollID uint64, after RevealKey, limit int) ([]Reveal, error)
	RevealHead(ctx context.Context, pollID uint64) (RevealKey, bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// DB is the ClickHouse implementation of Store.
type DB struct {
	clickhouse.Client
	Name string
}

// New connects to the ledger database. When initSchema is set the database and tables are
// created if missing, which is only wanted in development and tests.
func New(ctx context.Context, logger *zap.Logger, dbName string, initSchema bool, poolConfig *clickhouse.PoolConfig) (*DB, error) {
	name := clickhouse.SanitizeName(dbName)

	client, err := clickhouse.New(ctx, logger.With(
		zap.String("db", name),
		zap.String("component", poolConfig.Component),
	), name, poolConfig)
	if err != nil {
		return nil, err
	}

	db := &DB{Client: client, Name: name}
	if initSchema {
		if err := db.InitializeDB(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// InitializeDB creates the ledger database and its tables.
func (db *DB) InitializeDB(ctx context.Context) error {
	start := time.Now()
	if err := db.CreateDbIfNotExists(ctx, db.Name); err != nil {
		return fmt.Errorf("failed to create database %s: %w", db.Name, err)
	}

	tables := []struct {
		name    string
		columns []gravitymodels.ColumnDef
		engine  string
		orderBy string
	}{
		{gravitymodels.VotesTableName, gravitymodels.VoteColumns, clickhouse.Engine(clickhouse.ReplacingMergeTree, "revealed_block"), "poll_id, vote_id"},
		{gravitymodels.PollsTableName, gravitymodels.PollColumns, clickhouse.Engine(clickhouse.ReplacingMergeTree, "updated_at"), "poll_id"},
		{gravitymodels.UsernamesTableName, gravitymodels.UsernameColumns, clickhouse.Engine(clickhouse.ReplacingMergeTree, "updated_at"), "address"},
	}
	for _, t := range tables {
		query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" %s (
			%s
		) ENGINE = %s
		ORDER BY (%s)
	`, db.Name, t.name, db.OnCluster(), gravitymodels.ColumnsToSchemaSQL(t.columns), t.engine, t.orderBy)
		if err := db.Exec(ctx, query); err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
	}

	db.Logger.Info("Ledger schema ready", zap.String("database", db.Name), zap.Duration("took", time.Since(start)))
	return nil
}

// ListVotes returns every vote of a poll, latest row version per vote.
func (db *DB) ListVotes(ctx context.Context, pollID uint64) ([]gravity.Vote, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM "%s"."%s" FINAL
		WHERE poll_id = ?
	`, gravitymodels.ColumnNames(gravitymodels.VoteColumns), db.Name, gravitymodels.VotesTableName)

	var rows []gravitymodels.Vote
	if err := db.SelectWithFinal(ctx, &rows, query, pollID); err != nil {
		return nil, fmt.Errorf("list votes of poll %d: %w", pollID, err)
	}

	out := make([]gravity.Vote, len(rows))
	for i, r := range rows {
		out[i] = r.ToDomain()
	}
	return out, nil
}

// GetPollWindow returns the voting window of a poll, gravity.ErrNotFound when unknown.
func (db *DB) GetPollWindow(ctx context.Context, pollID uint64) (gravity.PollWindow, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM "%s"."%s" FINAL
		WHERE poll_id = ?
		LIMIT 1
	`, gravitymodels.ColumnNames(gravitymodels.PollColumns), db.Name, gravitymodels.PollsTableName)

	var rows []gravitymodels.Poll
	if err := db.SelectWithFinal(ctx, &rows, query, pollID); err != nil {
		return gravity.PollWindow{}, fmt.Errorf("get poll %d: %w", pollID, err)
	}
	if len(rows) == 0 {
		return gravity.PollWindow{}, fmt.Errorf("poll %d: %w", pollID, gravity.ErrNotFound)
	}
	return rows[0].Window(), nil
}

// ResolveUsernames maps lower-cased addresses to usernames. Unknown addresses are absent.
func (db *DB) ResolveUsernames(ctx context.Context, addresses []string) (map[string]string, error) {
	out := make(map[string]string, len(addresses))
	if len(addresses) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`
		SELECT address, username
		FROM "%s"."%s" FINAL
		WHERE address IN ?
	`, db.Name, gravitymodels.UsernamesTableName)

	var rows []gravitymodels.Username
	if err := db.SelectWithFinal(ctx, &rows, query, addresses); err != nil {
		return nil, fmt.Errorf("resolve usernames: %w", err)
	}
	for _, r := range rows {
		if r.Username != "" {
			out[r.Address] = r.Username
		}
	}
	return out, nil
}

// ListRevealsAfter returns up to limit reveals strictly after the given key.
func (db *DB) ListRevealsAfter(ctx context.Context, pollID uint64, after RevealKey, limit int) ([]Reveal, error) {
	query := fmt.Sprintf(`
		SELECT vote_id, assumeNotNull(candidate_id) AS candidate_id, revealed_block
		FROM "%s"."%s" FINAL
		WHERE poll_id = ?
		  AND candidate_id IS NOT NULL
		  AND (revealed_block, vote_id) > (?, ?)
		ORDER BY revealed_block, vote_id
		LIMIT ?
	`, db.Name, gravitymodels.VotesTableName)

	var rows []gravitymodels.RevealRow
	if err := db.SelectWithFinal(ctx, &rows, query, pollID, after.Block, after.VoteID, limit); err != nil {
		return nil, fmt.Errorf("list reveals of poll %d: %w", pollID, err)
	}
	return toReveals(rows), nil
}

// RevealHead returns the key of the latest reveal of a poll; false when nothing is revealed.
func (db *DB) RevealHead(ctx context.Context, pollID uint64) (RevealKey, bool, error) {
	query := fmt.Sprintf(`
		SELECT vote_id, assumeNotNull(candidate_id) AS candidate_id, revealed_block
		FROM "%s"."%s" FINAL
		WHERE poll_id = ?
		  AND candidate_id IS NOT NULL
		ORDER BY revealed_block DESC, vote_id DESC
		LIMIT 1
	`, db.Name, gravitymodels.VotesTableName)

	var rows []gravitymodels.RevealRow
	if err := db.SelectWithFinal(ctx, &rows, query, pollID); err != nil {
		return RevealKey{}, false, fmt.Errorf("reveal head of poll %d: %w", pollID, err)
	}
	if len(rows) == 0 {
		return RevealKey{}, false, nil
	}
	return RevealKey{Block: rows[0].RevealedBlock, VoteID: rows[0].VoteID}, true, nil
}

func toReveals(rows []gravitymodels.RevealRow) []Reveal {
	out := make([]Reveal, len(rows))
	for i, r := range rows {
		out[i] = Reveal{
			Key:         RevealKey{Block: r.RevealedBlock, VoteID: r.VoteID},
			VoteID:      r.VoteID,
			CandidateID: r.CandidateID,
		}
	}
	return out
}
