package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TopicCatalogRepository reads the pre-seeded per-class topic list used when no
// other topic source knows what a session covered.
type TopicCatalogRepository struct {
	db *sqlx.DB
}

// NewTopicCatalogRepository constructs a topic catalog repository.
func NewTopicCatalogRepository(db *sqlx.DB) *TopicCatalogRepository {
	return &TopicCatalogRepository{db: db}
}

// ListTopics returns the catalog titles of a class ordered by position. Position 1 is
// the first session.
func (r *TopicCatalogRepository) ListTopics(ctx context.Context, classID string) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	const query = `SELECT title FROM class_topic_catalog WHERE class_id = $1 ORDER BY position ASC`
	var topics []string
	if err := r.db.SelectContext(ctx, &topics, query, classID); err != nil {
		return nil, fmt.Errorf("list topic catalog: %w", err)
	}
	return topics, nil
}

const topicCatalogSchema = `CREATE TABLE IF NOT EXISTS class_topic_catalog (
	class_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	PRIMARY KEY (class_id, position)
)`

// EnsureSchema creates the catalog table when missing.
func (r *TopicCatalogRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, topicCatalogSchema); err != nil {
		return fmt.Errorf("ensure topic catalog schema: %w", err)
	}
	return nil
}

// ReplaceTopics rewrites the catalog of a class inside a transaction.
func (r *TopicCatalogRepository) ReplaceTopics(ctx context.Context, classID string, topics []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM class_topic_catalog WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear topic catalog: %w", err)
	}
	for i, title := range topics {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO class_topic_catalog (class_id, position, title) VALUES ($1, $2, $3)`,
			classID, i+1, title); err != nil {
			return fmt.Errorf("insert topic catalog: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit topic catalog: %w", err)
	}
	return nil
}
