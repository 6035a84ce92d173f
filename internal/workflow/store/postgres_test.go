package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siwarga/internal/access"
	"siwarga/internal/workflow/models"
	id "siwarga/pkg/domain"
	dErrors "siwarga/pkg/domain-errors"
	"siwarga/pkg/platform/sentinel"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgres(db)
}

var documentCols = []string{
	"id", "requester_id", "type", "purpose", "status", "approved_by", "approved_at",
	"signed_by", "signed_at", "completed_at", "rejection_reason", "created_at", "updated_at",
}

var pgNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func documentRow(rows *sqlmock.Rows, docID, requester uuid.UUID, status models.DocumentStatus) *sqlmock.Rows {
	return rows.AddRow(docID.String(), requester.String(), "Surat Domisili", "Bank", string(status),
		"", nil, "", nil, nil, "", pgNow, pgNow)
}

func TestFindDocument_NotFound(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM documents WHERE id = \$1`).WillReturnError(sql.ErrNoRows)

	_, err := store.FindDocument(context.Background(), id.DocumentID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteDocument_LocksRowAndCommits(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	docID, requester := uuid.New(), uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM documents WHERE id = \$1 FOR UPDATE`).
		WithArgs(docID.String()).
		WillReturnRows(documentRow(sqlmock.NewRows(documentCols), docID, requester, models.DocumentSubmitted))
	mock.ExpectExec(`UPDATE documents SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	d, err := store.ExecuteDocument(context.Background(), id.DocumentID(docID),
		func(d *models.Document) error { return d.CanApply(models.DocumentApprove, "") },
		func(d *models.Document) { d.Apply(models.DocumentApprove, "Pak RT", "", pgNow) })
	require.NoError(t, err)
	assert.Equal(t, models.DocumentApproved, d.Status)
	assert.Equal(t, id.ResidentID(requester), d.RequesterID)
	require.NotNil(t, d.ApprovedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteDocument_InvalidTransitionRollsBack(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	docID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(documentRow(sqlmock.NewRows(documentCols), docID, uuid.New(), models.DocumentCompleted))
	mock.ExpectRollback()

	_, err := store.ExecuteDocument(context.Background(), id.DocumentID(docID),
		func(d *models.Document) error { return d.CanApply(models.DocumentApprove, "") },
		func(d *models.Document) { d.Apply(models.DocumentApprove, "Pak RT", "", pgNow) })
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDocuments_Scopes(t *testing.T) {
	loc := id.Locality{RTNumber: "005", RWNumber: "002"}
	resident := id.ResidentID(uuid.New())

	tests := []struct {
		name  string
		scope access.Scope
		where string
		args  int
	}{
		{"global", access.Scope{Global: true}, `WHERE TRUE`, 0},
		{"locality", access.Scope{Locality: &loc}, `WHERE p\.rt_number = \$1 AND p\.rw_number = \$2`, 2},
		{"own", access.Scope{ResidentID: &resident}, `WHERE \(r\.requester_id = \$1 OR \(p\.family_id IS NOT NULL AND p\.family_id = \$2\)\)`, 2},
		{"nothing", access.Scope{}, `WHERE FALSE`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, store := setupMockDB(t)
			defer db.Close()

			args := make([]driver.Value, 0, tt.args)
			for range tt.args {
				args = append(args, sqlmock.AnyArg())
			}
			rows := documentRow(sqlmock.NewRows(documentCols), uuid.New(), uuid.New(), models.DocumentSubmitted)
			expect := mock.ExpectQuery(`SELECT r\.id, r\.requester_id, .* FROM documents r JOIN resident_profiles p .*` + tt.where)
			if len(args) > 0 {
				expect = expect.WithArgs(args...)
			}
			expect.WillReturnRows(rows)

			docs, err := store.ListDocuments(context.Background(), tt.scope)
			require.NoError(t, err)
			assert.Len(t, docs, 1)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateRecipient_DuplicateEnrollment(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO social_assistance_recipients`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "social_assistance_recipients_resident_id_program_key"})

	err := store.CreateRecipient(context.Background(), &models.Recipient{
		ID: id.RecipientID(uuid.New()), ResidentID: id.ResidentID(uuid.New()), Program: "PKH",
	})
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountComplaintsByCreator(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	creator := uuid.New()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM complaints WHERE creator_id = \$1`).
		WithArgs(creator.String()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := store.CountComplaintsByCreator(context.Background(), id.ResidentID(creator))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrefixed(t *testing.T) {
	assert.Equal(t, "r.id, r.status, r.created_at", prefixed("r", "id, status,\n\tcreated_at"))
}
