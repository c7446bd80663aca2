package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no profile row exists for the user yet.
var ErrNotFound = errors.New("profile not found")

// Repository persists profiles.
type Repository interface {
	Create(ctx context.Context, userID string) error
	Update(ctx context.Context, userID string, fields Fields) error
	Get(ctx context.Context, userID string) (Profile, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed profile repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an empty profile row. Existing rows are left untouched.
func (r *PostgresRepository) Create(ctx context.Context, userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = r.db.Exec(ctx, `INSERT INTO profiles (user_id, created_at, updated_at)
        VALUES ($1, $2, $2) ON CONFLICT (user_id) DO NOTHING`, id, now)
	return err
}

// Update overwrites the writable profile fields.
func (r *PostgresRepository) Update(ctx context.Context, userID string, f Fields) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE profiles SET full_name = $1, business_name = $2, business_type = $3,
        description = $4, location = $5, phone = $6, whatsapp = $7, working_hours = $8,
        payment_methods = $9, delivery_areas = $10, updated_at = $11 WHERE user_id = $12`,
		f.FullName, f.BusinessName, f.BusinessType, f.Description, f.Location, f.Phone, f.WhatsApp,
		f.WorkingHours, nonNil(f.PaymentMethods), nonNil(f.DeliveryAreas), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get fetches the profile for a user.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (Profile, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return Profile{}, err
	}
	row := r.db.QueryRow(ctx, `SELECT user_id, full_name, business_name, business_type, description, location,
        phone, whatsapp, working_hours, payment_methods, delivery_areas, created_at, updated_at
        FROM profiles WHERE user_id = $1`, id)
	var (
		p     Profile
		idVal uuid.UUID
	)
	if err := row.Scan(&idVal, &p.FullName, &p.BusinessName, &p.BusinessType, &p.Description, &p.Location,
		&p.Phone, &p.WhatsApp, &p.WorkingHours, &p.PaymentMethods, &p.DeliveryAreas, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	p.UserID = idVal.String()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
