package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"siwarga/internal/access"
	"siwarga/internal/platform/postgres"
	"siwarga/internal/workflow/models"
	id "siwarga/pkg/domain"
	"siwarga/pkg/platform/sentinel"
	"siwarga/pkg/platform/tx"
)

// PostgresStore persists workflow records. Scoped listings join the owning
// resident profile for locality and family.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	documentColumns = `id, requester_id, type, purpose, status, approved_by, approved_at,
	signed_by, signed_at, completed_at, rejection_reason, created_at, updated_at`
	complaintColumns = `id, creator_id, title, description, category, status, response,
	responded_by, responded_at, created_at, updated_at`
	recipientColumns = `id, resident_id, program, assistance_type, is_verified, verified_by,
	verified_at, created_at, updated_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// Documents
// =============================================================================

func (s *PostgresStore) CreateDocument(ctx context.Context, d *models.Document) error {
	query := `INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	if _, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, documentArgs(d)...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("create document: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDocument(ctx context.Context, documentID id.DocumentID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(documentID)))
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return d, nil
}

// ExecuteDocument locks the row with SELECT ... FOR UPDATE, runs validate and
// mutate, and writes the result in the same transaction.
func (s *PostgresStore) ExecuteDocument(ctx context.Context, documentID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error) {
	var result *models.Document
	err := tx.Run(ctx, s.db, func(ctx context.Context, sqlTx *sql.Tx) error {
		query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 FOR UPDATE`
		d, err := scanDocument(sqlTx.QueryRowContext(ctx, query, uuid.UUID(documentID)))
		if err != nil {
			return fmt.Errorf("lock document: %w", err)
		}
		if err := validate(d); err != nil {
			return err
		}
		mutate(d)

		update := `
			UPDATE documents SET
				requester_id = $2, type = $3, purpose = $4, status = $5, approved_by = $6, approved_at = $7,
				signed_by = $8, signed_at = $9, completed_at = $10, rejection_reason = $11,
				created_at = $12, updated_at = $13
			WHERE id = $1`
		if _, err := sqlTx.ExecContext(ctx, update, documentArgs(d)...); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, scope access.Scope) ([]*models.Document, error) {
	where, args := scopeClause(scope, "r.requester_id", 1)
	query := `SELECT ` + prefixed("r", documentColumns) + `
		FROM documents r JOIN resident_profiles p ON p.id = r.requester_id
		WHERE ` + where + `
		ORDER BY r.created_at DESC`
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountDocumentsByRequester(ctx context.Context, residentID id.ResidentID) (int, error) {
	return s.count(ctx, "count documents", `SELECT COUNT(*) FROM documents WHERE requester_id = $1`, residentID)
}

func documentArgs(d *models.Document) []any {
	return []any{
		uuid.UUID(d.ID), uuid.UUID(d.RequesterID), d.Type, d.Purpose, string(d.Status),
		d.ApprovedBy, nullTime(d.ApprovedAt), d.SignedBy, nullTime(d.SignedAt), nullTime(d.CompletedAt),
		d.RejectionReason, d.CreatedAt, d.UpdatedAt,
	}
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		d                                 models.Document
		rawID, requester                  uuid.UUID
		status                            string
		approvedAt, signedAt, completedAt sql.NullTime
	)
	err := row.Scan(&rawID, &requester, &d.Type, &d.Purpose, &status, &d.ApprovedBy, &approvedAt,
		&d.SignedBy, &signedAt, &completedAt, &d.RejectionReason, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	d.ID = id.DocumentID(rawID)
	d.RequesterID = id.ResidentID(requester)
	d.Status = models.DocumentStatus(status)
	d.ApprovedAt = timePtr(approvedAt)
	d.SignedAt = timePtr(signedAt)
	d.CompletedAt = timePtr(completedAt)
	return &d, nil
}

// =============================================================================
// Complaints
// =============================================================================

func (s *PostgresStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	query := `INSERT INTO complaints (` + complaintColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, complaintArgs(c)...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("create complaint: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindComplaint(ctx context.Context, complaintID id.ComplaintID) (*models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`
	c, err := scanComplaint(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(complaintID)))
	if err != nil {
		return nil, fmt.Errorf("find complaint: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ExecuteComplaint(ctx context.Context, complaintID id.ComplaintID, validate func(*models.Complaint) error, mutate func(*models.Complaint)) (*models.Complaint, error) {
	var result *models.Complaint
	err := tx.Run(ctx, s.db, func(ctx context.Context, sqlTx *sql.Tx) error {
		query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1 FOR UPDATE`
		c, err := scanComplaint(sqlTx.QueryRowContext(ctx, query, uuid.UUID(complaintID)))
		if err != nil {
			return fmt.Errorf("lock complaint: %w", err)
		}
		if err := validate(c); err != nil {
			return err
		}
		mutate(c)

		update := `
			UPDATE complaints SET
				creator_id = $2, title = $3, description = $4, category = $5, status = $6,
				response = $7, responded_by = $8, responded_at = $9, created_at = $10, updated_at = $11
			WHERE id = $1`
		if _, err := sqlTx.ExecContext(ctx, update, complaintArgs(c)...); err != nil {
			return fmt.Errorf("update complaint: %w", err)
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) ListComplaints(ctx context.Context, scope access.Scope) ([]*models.Complaint, error) {
	where, args := scopeClause(scope, "r.creator_id", 1)
	query := `SELECT ` + prefixed("r", complaintColumns) + `
		FROM complaints r JOIN resident_profiles p ON p.id = r.creator_id
		WHERE ` + where + `
		ORDER BY r.created_at DESC`
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	var out []*models.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountComplaintsByCreator(ctx context.Context, residentID id.ResidentID) (int, error) {
	return s.count(ctx, "count complaints", `SELECT COUNT(*) FROM complaints WHERE creator_id = $1`, residentID)
}

func complaintArgs(c *models.Complaint) []any {
	return []any{
		uuid.UUID(c.ID), uuid.UUID(c.CreatorID), c.Title, c.Description, c.Category, string(c.Status),
		c.Response, c.RespondedBy, nullTime(c.RespondedAt), c.CreatedAt, c.UpdatedAt,
	}
}

func scanComplaint(row rowScanner) (*models.Complaint, error) {
	var (
		c              models.Complaint
		rawID, creator uuid.UUID
		status         string
		respondedAt    sql.NullTime
	)
	err := row.Scan(&rawID, &creator, &c.Title, &c.Description, &c.Category, &status,
		&c.Response, &c.RespondedBy, &respondedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	c.ID = id.ComplaintID(rawID)
	c.CreatorID = id.ResidentID(creator)
	c.Status = models.ComplaintStatus(status)
	c.RespondedAt = timePtr(respondedAt)
	return &c, nil
}

// =============================================================================
// Recipients
// =============================================================================

// CreateRecipient relies on the (resident_id, program) unique index.
func (s *PostgresStore) CreateRecipient(ctx context.Context, r *models.Recipient) error {
	query := `INSERT INTO social_assistance_recipients (` + recipientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, recipientArgs(r)...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("create recipient: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create recipient: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindRecipient(ctx context.Context, recipientID id.RecipientID) (*models.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM social_assistance_recipients WHERE id = $1`
	r, err := scanRecipient(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(recipientID)))
	if err != nil {
		return nil, fmt.Errorf("find recipient: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ExecuteRecipient(ctx context.Context, recipientID id.RecipientID, validate func(*models.Recipient) error, mutate func(*models.Recipient)) (*models.Recipient, error) {
	var result *models.Recipient
	err := tx.Run(ctx, s.db, func(ctx context.Context, sqlTx *sql.Tx) error {
		query := `SELECT ` + recipientColumns + ` FROM social_assistance_recipients WHERE id = $1 FOR UPDATE`
		r, err := scanRecipient(sqlTx.QueryRowContext(ctx, query, uuid.UUID(recipientID)))
		if err != nil {
			return fmt.Errorf("lock recipient: %w", err)
		}
		if err := validate(r); err != nil {
			return err
		}
		mutate(r)

		update := `
			UPDATE social_assistance_recipients SET
				resident_id = $2, program = $3, assistance_type = $4, is_verified = $5,
				verified_by = $6, verified_at = $7, created_at = $8, updated_at = $9
			WHERE id = $1`
		if _, err := sqlTx.ExecContext(ctx, update, recipientArgs(r)...); err != nil {
			return fmt.Errorf("update recipient: %w", err)
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) CountRecipientsByResident(ctx context.Context, residentID id.ResidentID) (int, error) {
	return s.count(ctx, "count recipients", `SELECT COUNT(*) FROM social_assistance_recipients WHERE resident_id = $1`, residentID)
}

func recipientArgs(r *models.Recipient) []any {
	return []any{
		uuid.UUID(r.ID), uuid.UUID(r.ResidentID), r.Program, r.AssistanceType, r.IsVerified,
		r.VerifiedBy, nullTime(r.VerifiedAt), r.CreatedAt, r.UpdatedAt,
	}
}

func scanRecipient(row rowScanner) (*models.Recipient, error) {
	var (
		r               models.Recipient
		rawID, resident uuid.UUID
		verifiedAt      sql.NullTime
	)
	err := row.Scan(&rawID, &resident, &r.Program, &r.AssistanceType, &r.IsVerified,
		&r.VerifiedBy, &verifiedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	r.ID = id.RecipientID(rawID)
	r.ResidentID = id.ResidentID(resident)
	r.VerifiedAt = timePtr(verifiedAt)
	return &r, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *PostgresStore) count(ctx context.Context, op, query string, residentID id.ResidentID) (int, error) {
	var n int
	if err := tx.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(residentID)).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// scopeClause renders an access.Scope as a WHERE fragment over the joined
// resident profile p, numbering placeholders from first.
func scopeClause(scope access.Scope, ownerColumn string, first int) (string, []any) {
	ph := func(n int) string { return "$" + strconv.Itoa(first+n) }
	switch {
	case scope.Global:
		return "TRUE", nil
	case scope.Locality != nil:
		return "p.rt_number = " + ph(0) + " AND p.rw_number = " + ph(1),
			[]any{scope.Locality.RTNumber, scope.Locality.RWNumber}
	case scope.ResidentID != nil || scope.FamilyID != nil:
		owner := uuid.NullUUID{}
		if scope.ResidentID != nil {
			owner = uuid.NullUUID{UUID: uuid.UUID(*scope.ResidentID), Valid: true}
		}
		family := uuid.NullUUID{}
		if scope.FamilyID != nil {
			family = uuid.NullUUID{UUID: uuid.UUID(*scope.FamilyID), Valid: true}
		}
		return "(" + ownerColumn + " = " + ph(0) + " OR (p.family_id IS NOT NULL AND p.family_id = " + ph(1) + "))",
			[]any{owner, family}
	default:
		return "FALSE", nil
	}
}

// prefixed qualifies a comma separated column list with a table alias.
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
