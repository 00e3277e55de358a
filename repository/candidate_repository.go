package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"contestbet/database"
	"contestbet/models"
)

// CandidateRepository implements the service.CandidateRepository interface.
// Candidates are read-only reference data for the betting engine.
type CandidateRepository struct {
	q queryable
}

// NewCandidateRepository creates a new candidate repository
func NewCandidateRepository(db *database.DB) *CandidateRepository {
	return &CandidateRepository{q: db.Pool}
}

func newCandidateRepositoryWithTx(tx queryable) *CandidateRepository {
	return &CandidateRepository{q: tx}
}

// GetByID retrieves a candidate by its ID
func (r *CandidateRepository) GetByID(ctx context.Context, id int64) (*models.Candidate, error) {
	query := `
		SELECT id, first_name, last_name, info, created_at
		FROM candidates
		WHERE id = $1
	`

	var c models.Candidate
	err := r.q.QueryRow(ctx, query, id).Scan(&c.ID, &c.FirstName, &c.LastName, &c.Info, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate %d: %w", id, err)
	}
	return &c, nil
}

// GetAll returns all candidates ordered by ID
func (r *CandidateRepository) GetAll(ctx context.Context) ([]*models.Candidate, error) {
	query := `
		SELECT id, first_name, last_name, info, created_at
		FROM candidates
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Info, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return candidates, nil
}

// Create inserts a candidate. Used by seeding and tests; the engine itself
// never writes candidates.
func (r *CandidateRepository) Create(ctx context.Context, candidate *models.Candidate) error {
	query := `
		INSERT INTO candidates (first_name, last_name, info)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, candidate.FirstName, candidate.LastName, candidate.Info).
		Scan(&candidate.ID, &candidate.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}
	return nil
}
