package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, account Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	FindByConfirmationToken(ctx context.Context, token string) (Account, error)
	MarkConfirmed(ctx context.Context, id string, at time.Time) error
	UpdateTokenVersion(ctx context.Context, id string, version int) error
	TouchLastSignIn(ctx context.Context, id string, at time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, email, display_name, password_hash, confirmation_token, confirmed_at,
        token_version, last_sign_in_at, created_at`

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, a Account) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (`+accountColumns+`)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)`,
		id, a.Email, a.DisplayName, a.PasswordHash, a.ConfirmationToken, a.ConfirmedAt,
		a.TokenVersion, a.LastSignInAt, a.CreatedAt.UTC())
	return err
}

// FindByEmail fetches an account by normalized email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

// FindByID fetches an account by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
}

// FindByConfirmationToken fetches the unconfirmed account owning the token.
func (r *PostgresRepository) FindByConfirmationToken(ctx context.Context, token string) (Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE confirmation_token = $1`, token)
}

// MarkConfirmed sets the confirmation time and burns the token.
func (r *PostgresRepository) MarkConfirmed(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `UPDATE accounts SET confirmed_at = $1, confirmation_token = NULL WHERE id = $2`, id, at.UTC())
}

// UpdateTokenVersion stores the account's token version.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	return r.exec(ctx, `UPDATE accounts SET token_version = $1 WHERE id = $2`, id, version)
}

// TouchLastSignIn records a successful sign-in.
func (r *PostgresRepository) TouchLastSignIn(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `UPDATE accounts SET last_sign_in_at = $1 WHERE id = $2`, id, at.UTC())
}

// exec runs an update whose last placeholder is the account id.
func (r *PostgresRepository) exec(ctx context.Context, query, id string, arg any) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, query, arg, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (Account, error) {
	var (
		a     Account
		id    uuid.UUID
		token *string
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&id, &a.Email, &a.DisplayName, &a.PasswordHash, &token,
		&a.ConfirmedAt, &a.TokenVersion, &a.LastSignInAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	a.ID = id.String()
	if token != nil {
		a.ConfirmationToken = *token
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.Identities = []Identity{{ID: a.ID, Provider: ProviderEmail}}
	return a, nil
}
