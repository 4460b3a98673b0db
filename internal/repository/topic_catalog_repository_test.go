package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTopicCatalogRepositoryListTopics(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()

	repo := NewTopicCatalogRepository(db)
	rows := sqlmock.NewRows([]string{"title"}).
		AddRow("Limits").
		AddRow("Derivatives").
		AddRow("Mock Exam")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT title FROM class_topic_catalog WHERE class_id = $1 ORDER BY position ASC")).
		WithArgs("class-1").
		WillReturnRows(rows)

	topics, err := repo.ListTopics(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Limits", "Derivatives", "Mock Exam"}, topics)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicCatalogRepositoryListTopicsError(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()

	repo := NewTopicCatalogRepository(db)
	mock.ExpectQuery("SELECT title FROM class_topic_catalog").
		WithArgs("class-1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ListTopics(context.Background(), "class-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list topic catalog")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicCatalogRepositoryWithoutDatabase(t *testing.T) {
	var repo *TopicCatalogRepository
	topics, err := repo.ListTopics(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestTopicCatalogRepositoryReplaceTopics(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()

	repo := NewTopicCatalogRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_topic_catalog WHERE class_id = $1")).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_topic_catalog")).
		WithArgs("class-1", 1, "Limits").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_topic_catalog")).
		WithArgs("class-1", 2, "Final Test").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceTopics(context.Background(), "class-1", []string{"Limits", "Final Test"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicCatalogRepositoryReplaceTopicsRollsBack(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()

	repo := NewTopicCatalogRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM class_topic_catalog").
		WithArgs("class-1").
		WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	err := repo.ReplaceTopics(context.Background(), "class-1", []string{"Limits"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicCatalogRepositoryEnsureSchema(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS class_topic_catalog").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewTopicCatalogRepository(db).EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
