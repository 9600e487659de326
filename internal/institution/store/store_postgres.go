package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"yeirin/internal/institution/models"
	"yeirin/internal/platform/postgres"
	id "yeirin/pkg/domain"
	"yeirin/pkg/platform/sentinel"
	txcontext "yeirin/pkg/platform/tx"
)

// PostgresStore persists institutions in PostgreSQL. Service tags are stored
// as a TEXT[] column.
type PostgresStore struct {
	db     *sql.DB
	runner txcontext.Runner
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, runner: txcontext.NewSQLRunner(db)}
}

const selectInstitution = `
	SELECT id, name, type, address, phone, capacity, service_tags, status,
	       average_rating, review_count, created_at, updated_at
	FROM institutions
`

func (s *PostgresStore) CreateIfNameAvailable(ctx context.Context, inst *models.Institution) error {
	query := `
		INSERT INTO institutions (id, name, type, address, phone, capacity, service_tags, status,
		                          average_rating, review_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(inst.ID), inst.Name, string(inst.Type), inst.Address, inst.Phone, inst.Capacity,
		pq.Array(inst.ServiceTags), string(inst.Status), inst.AverageRating, inst.ReviewCount,
		inst.CreatedAt, inst.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("institution name %q: %w", inst.Name, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert institution: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, institutionID id.InstitutionID) (*models.Institution, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, selectInstitution+` WHERE id = $1`, uuid.UUID(institutionID))
	return scanInstitution(row)
}

func (s *PostgresStore) List(ctx context.Context, kind models.InstitutionType) ([]*models.Institution, error) {
	query := selectInstitution + ` WHERE ($1 = '' OR type = $1) ORDER BY name`
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	defer rows.Close()

	var out []*models.Institution
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate institutions: %w", err)
	}
	return out, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate and mutate,
// then writes the result back in the same transaction.
func (s *PostgresStore) Execute(ctx context.Context, institutionID id.InstitutionID, validate func(*models.Institution) error, mutate func(*models.Institution)) (*models.Institution, error) {
	var result *models.Institution
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		exec := txcontext.ExecutorFrom(ctx, s.db)
		inst, err := scanInstitution(exec.QueryRowContext(ctx, selectInstitution+` WHERE id = $1 FOR UPDATE`, uuid.UUID(institutionID)))
		if err != nil {
			return err
		}
		if err := validate(inst); err != nil {
			return err
		}
		mutate(inst)

		_, err = exec.ExecContext(ctx, `
			UPDATE institutions SET
				name = $2, address = $3, phone = $4, capacity = $5, service_tags = $6,
				status = $7, average_rating = $8, review_count = $9, updated_at = $10
			WHERE id = $1
		`, uuid.UUID(inst.ID), inst.Name, inst.Address, inst.Phone, inst.Capacity,
			pq.Array(inst.ServiceTags), string(inst.Status), inst.AverageRating, inst.ReviewCount, inst.UpdatedAt)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return fmt.Errorf("institution name %q: %w", inst.Name, sentinel.ErrConflict)
			}
			return fmt.Errorf("update institution: %w", err)
		}
		result = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstitution(row scanner) (*models.Institution, error) {
	var (
		inst          models.Institution
		institutionID uuid.UUID
		kind, status  string
		tags          pq.StringArray
	)
	err := row.Scan(&institutionID, &inst.Name, &kind, &inst.Address, &inst.Phone, &inst.Capacity,
		&tags, &status, &inst.AverageRating, &inst.ReviewCount, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("institution not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan institution: %w", err)
	}
	inst.ID = id.InstitutionID(institutionID)
	inst.Type = models.InstitutionType(kind)
	inst.Status = models.Status(status)
	inst.ServiceTags = []string(tags)
	if inst.ServiceTags == nil {
		inst.ServiceTags = []string{}
	}
	return &inst, nil
}
