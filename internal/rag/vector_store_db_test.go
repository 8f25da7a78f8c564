package rag

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestDatabaseStorePut(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewDatabaseVectorStore(db, 3)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "document_chunks"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := store.Put(context.Background(), ChunkRecord{
		DocumentID: "report.pdf",
		OwnerID:    "owner-a",
		Index:      0,
		Content:    "chunk text",
		Embedding:  []float32{0.1, 0.2, 0.3},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseStorePutDimensionMismatch(t *testing.T) {
	db, _ := newMockDB(t)
	store := NewDatabaseVectorStore(db, 3)

	err := store.Put(context.Background(), ChunkRecord{
		DocumentID: "report.pdf",
		OwnerID:    "owner-a",
		Content:    "chunk text",
		Embedding:  []float32{0.1, 0.2},
	})
	assert.Error(t, err)

	err = store.Put(context.Background(), ChunkRecord{
		DocumentID: "report.pdf",
		OwnerID:    "owner-a",
		Content:    "chunk text",
	})
	assert.Error(t, err)
}

func TestDatabaseStoreSearchScopedToOwner(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewDatabaseVectorStore(db, 2)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "document_id", "owner_id", "chunk_index", "content", "embedding", "created_at"}).
		AddRow(1, "report.pdf", "owner-a", 0, "exact match", `[1,0]`, now).
		AddRow(2, "report.pdf", "owner-a", 1, "weak match", `[0,1]`, now)

	// owner_id 过滤必须出现在SQL里，这是租户隔离的关键
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "document_chunks" WHERE owner_id = $1 ORDER BY id ASC`)).
		WithArgs("owner-a").
		WillReturnRows(rows)

	results, err := store.Search(context.Background(), "owner-a", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "exact match", results[0].Content)
	assert.Equal(t, "weak match", results[1].Content)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseStoreSearchSkipsCorruptEmbedding(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewDatabaseVectorStore(db, 2)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "document_id", "owner_id", "chunk_index", "content", "embedding", "created_at"}).
		AddRow(1, "report.pdf", "owner-a", 0, "good", `[1,0]`, now).
		AddRow(2, "report.pdf", "owner-a", 1, "corrupt", `not-json`, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "document_chunks"`)).
		WillReturnRows(rows)

	results, err := store.Search(context.Background(), "owner-a", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "good", results[0].Content)
}

func TestDatabaseStoreSearchEmptyQuery(t *testing.T) {
	db, _ := newMockDB(t)
	store := NewDatabaseVectorStore(db, 2)

	results, err := store.Search(context.Background(), "owner-a", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
