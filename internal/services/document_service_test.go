package services

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

	"github.com/docchat/backend-go/internal/models"
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

func TestListByOwnerScopesQuery(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewDocumentService(db, nil, nil)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "file_name", "owner_id", "status", "chunk_count", "created_at", "updated_at"}).
		AddRow(2, "second.pdf", "owner-a", models.DocumentStatusCompleted, 12, now, now).
		AddRow(1, "first.pdf", "owner-a", models.DocumentStatusCompleted, 5, now.Add(-time.Hour), now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "documents" WHERE owner_id = $1 ORDER BY created_at DESC`)).
		WithArgs("owner-a").
		WillReturnRows(rows)

	docs, err := svc.ListByOwner(context.Background(), "owner-a")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "second.pdf", docs[0].FileName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusFallsBackToRegistry(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewDocumentService(db, nil, nil)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "file_name", "owner_id", "status", "chunk_count", "created_at", "updated_at"}).
		AddRow(1, "report.pdf", "owner-a", models.DocumentStatusCompleted, 7, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "documents" WHERE owner_id = $1 AND file_name = $2 ORDER BY created_at DESC,"documents"."id" LIMIT $3`)).
		WithArgs("owner-a", "report.pdf", 1).
		WillReturnRows(rows)

	status, err := svc.Status(context.Background(), "owner-a", "report.pdf")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, IngestStateCompleted, status.State)
	assert.Equal(t, 7, status.ChunkTotal)
}

func TestStatusUnknownDocument(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewDocumentService(db, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "documents"`)).
		WillReturnError(gorm.ErrRecordNotFound)

	status, err := svc.Status(context.Background(), "owner-a", "missing.pdf")
	require.NoError(t, err)
	assert.Nil(t, status)
}
