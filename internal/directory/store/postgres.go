package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"siwarga/internal/directory/models"
	"siwarga/internal/platform/postgres"
	id "siwarga/pkg/domain"
	"siwarga/pkg/platform/sentinel"
	"siwarga/pkg/platform/tx"
)

// PostgresStore persists users, RT assignments and resident profiles.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed directory store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const profileColumns = `id, user_id, nik, no_kk, full_name, birth_date, address, family_role,
	rt_number, rw_number, family_id, rt_id, is_verified, verified_by, verified_at, created_at, updated_at`

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, name, role, rt_assignment_id, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(user.ID), user.Name, user.Role.String(), nullRTID(user.RTAssignmentID), user.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("create user: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `SELECT id, name, role, rt_assignment_id, created_at FROM users WHERE id = $1`
	var (
		u      models.User
		rawID  uuid.UUID
		role   string
		rtLink uuid.NullUUID
	)
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID)).
		Scan(&rawID, &u.Name, &role, &rtLink, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find user: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = id.UserID(rawID)
	u.Role = id.Role(role)
	if rtLink.Valid {
		rtID := id.RTID(rtLink.UUID)
		u.RTAssignmentID = &rtID
	}
	return &u, nil
}

func (s *PostgresStore) ListUserIDs(ctx context.Context) ([]id.UserID, error) {
	return s.queryUserIDs(ctx, "list users", `SELECT id FROM users ORDER BY created_at, id`)
}

func (s *PostgresStore) UserIDsByRole(ctx context.Context, role id.Role, locality *id.Locality) ([]id.UserID, error) {
	if locality == nil {
		return s.queryUserIDs(ctx, "list users by role",
			`SELECT id FROM users WHERE role = $1 ORDER BY created_at, id`, role.String())
	}
	query := `
		SELECT u.id FROM users u
		JOIN resident_profiles p ON p.user_id = u.id
		WHERE u.role = $1 AND p.rt_number = $2 AND p.rw_number = $3
		ORDER BY u.created_at, u.id`
	return s.queryUserIDs(ctx, "list users by role and locality", query,
		role.String(), locality.RTNumber, locality.RWNumber)
}

func (s *PostgresStore) UserIDsByRTNumbers(ctx context.Context, rwNumber string, rtNumbers []string, roles []id.Role) ([]id.UserID, error) {
	roleNames := make([]string, 0, len(roles))
	for _, r := range roles {
		roleNames = append(roleNames, r.String())
	}
	query := `
		SELECT p.user_id FROM resident_profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.rt_number = ANY($1)
		  AND ($3::text = '' OR p.rw_number = $3::text)
		  AND (cardinality($2::text[]) = 0 OR u.role = ANY($2::text[]))
		ORDER BY p.created_at, p.id`
	return s.queryUserIDs(ctx, "list users by rt numbers", query, pq.Array(rtNumbers), pq.Array(roleNames), rwNumber)
}

func (s *PostgresStore) queryUserIDs(ctx context.Context, op, query string, args ...any) ([]id.UserID, error) {
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []id.UserID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, id.UserID(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *PostgresStore) CreateRTAssignment(ctx context.Context, a *models.RTAssignment) error {
	query := `INSERT INTO rt_assignments (id, number, rw_number, is_active) VALUES ($1, $2, $3, $4)`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, uuid.UUID(a.ID), a.Number, a.RWNumber, a.IsActive)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("create rt assignment: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create rt assignment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindRTAssignment(ctx context.Context, rtID id.RTID) (*models.RTAssignment, error) {
	query := `SELECT id, number, rw_number, is_active FROM rt_assignments WHERE id = $1`
	var (
		a   models.RTAssignment
		raw uuid.UUID
	)
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(rtID)).
		Scan(&raw, &a.Number, &a.RWNumber, &a.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find rt assignment: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find rt assignment: %w", err)
	}
	a.ID = id.RTID(raw)
	return &a, nil
}

func (s *PostgresStore) CreateProfile(ctx context.Context, p *models.ResidentProfile) error {
	query := `INSERT INTO resident_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, profileArgs(p)...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("create resident profile: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create resident profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindProfile(ctx context.Context, residentID id.ResidentID) (*models.ResidentProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM resident_profiles WHERE id = $1`
	p, err := scanProfile(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(residentID)))
	if err != nil {
		return nil, fmt.Errorf("find resident profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindProfileByUser(ctx context.Context, userID id.UserID) (*models.ResidentProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM resident_profiles WHERE user_id = $1`
	p, err := scanProfile(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		return nil, fmt.Errorf("find resident profile by user: %w", err)
	}
	return p, nil
}

// ExecuteProfile locks the row with SELECT ... FOR UPDATE, runs validate and
// mutate, and writes the result in the same transaction.
func (s *PostgresStore) ExecuteProfile(ctx context.Context, residentID id.ResidentID, validate func(*models.ResidentProfile) error, mutate func(*models.ResidentProfile)) (*models.ResidentProfile, error) {
	var result *models.ResidentProfile
	err := tx.Run(ctx, s.db, func(ctx context.Context, sqlTx *sql.Tx) error {
		query := `SELECT ` + profileColumns + ` FROM resident_profiles WHERE id = $1 FOR UPDATE`
		p, err := scanProfile(sqlTx.QueryRowContext(ctx, query, uuid.UUID(residentID)))
		if err != nil {
			return fmt.Errorf("lock resident profile: %w", err)
		}
		if err := validate(p); err != nil {
			return err
		}
		mutate(p)

		update := `
			UPDATE resident_profiles SET
				user_id = $2, nik = $3, no_kk = $4, full_name = $5, birth_date = $6, address = $7,
				family_role = $8, rt_number = $9, rw_number = $10, family_id = $11, rt_id = $12,
				is_verified = $13, verified_by = $14, verified_at = $15, created_at = $16, updated_at = $17
			WHERE id = $1`
		if _, err := sqlTx.ExecContext(ctx, update, profileArgs(p)...); err != nil {
			if postgres.IsUniqueViolation(err) {
				return fmt.Errorf("update resident profile: %w", sentinel.ErrAlreadyUsed)
			}
			return fmt.Errorf("update resident profile: %w", err)
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) DeleteProfile(ctx context.Context, residentID id.ResidentID) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM resident_profiles WHERE id = $1`, uuid.UUID(residentID))
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("delete resident profile: %w", sentinel.ErrReferenced)
		}
		return fmt.Errorf("delete resident profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete resident profile: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete resident profile: %w", sentinel.ErrNotFound)
	}
	return nil
}

func profileArgs(p *models.ResidentProfile) []any {
	return []any{
		uuid.UUID(p.ID), nullUserID(p.UserID), p.NIK, p.NoKK, p.FullName, p.BirthDate, p.Address, p.FamilyRole,
		p.Locality.RTNumber, p.Locality.RWNumber, nullFamilyID(p.FamilyID), nullRTID(p.RTID),
		p.IsVerified, p.VerifiedBy, nullTime(p.VerifiedAt), p.CreatedAt, p.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.ResidentProfile, error) {
	var (
		p          models.ResidentProfile
		rawID      uuid.UUID
		userID     uuid.NullUUID
		familyID   uuid.NullUUID
		rtID       uuid.NullUUID
		verifiedAt sql.NullTime
	)
	err := row.Scan(&rawID, &userID, &p.NIK, &p.NoKK, &p.FullName, &p.BirthDate, &p.Address, &p.FamilyRole,
		&p.Locality.RTNumber, &p.Locality.RWNumber, &familyID, &rtID,
		&p.IsVerified, &p.VerifiedBy, &verifiedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	p.ID = id.ResidentID(rawID)
	if userID.Valid {
		v := id.UserID(userID.UUID)
		p.UserID = &v
	}
	if familyID.Valid {
		v := id.FamilyID(familyID.UUID)
		p.FamilyID = &v
	}
	if rtID.Valid {
		v := id.RTID(rtID.UUID)
		p.RTID = &v
	}
	if verifiedAt.Valid {
		v := verifiedAt.Time
		p.VerifiedAt = &v
	}
	return &p, nil
}

func nullUserID(v *id.UserID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func nullFamilyID(v *id.FamilyID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func nullRTID(v *id.RTID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
