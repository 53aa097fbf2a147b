package persist

import (
	"context"
	"fmt"
)

// Record is one component change as stored in the journal.
type Record struct {
	Entity    string
	Component string
	Value     string
	Removed   bool
}

// Batch is the set of changes applied by one dispatcher batch. Run separates
// process runs, since Seq restarts at 1 every run.
type Batch struct {
	Run     int64
	Seq     int64
	Records []Record
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// WriteBatch atomically writes a batch in a single transaction. Writing the
// same run and seq again appends to it.
func (r *JournalRepo) WriteBatch(ctx context.Context, b Batch) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO journal_batches (run_id, seq, changes) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, seq) DO UPDATE SET changes = journal_batches.changes + EXCLUDED.changes`,
		b.Run, b.Seq, len(b.Records),
	); err != nil {
		return fmt.Errorf("journal batch insert: %w", err)
	}
	for _, rec := range b.Records {
		if _, err := tx.Exec(ctx,
			`INSERT INTO journal_changes (run_id, seq, entity, component, value, removed)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			b.Run, b.Seq, rec.Entity, rec.Component, rec.Value, rec.Removed,
		); err != nil {
			return fmt.Errorf("journal change insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// History returns the recorded changes of one entity in a run, oldest first.
func (r *JournalRepo) History(ctx context.Context, run int64, entity string) ([]Record, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT entity, component, COALESCE(value, ''), removed FROM journal_changes
		 WHERE run_id = $1 AND entity = $2 ORDER BY id`,
		run, entity,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Entity, &rec.Component, &rec.Value, &rec.Removed); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
