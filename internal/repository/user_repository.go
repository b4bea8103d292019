package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, tenant_id, email, password_hash, name, role, COALESCE(avatar_url, ''), created_at"

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO users (id, tenant_id, email, password_hash, name, role, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`, user.ID, user.TenantID, user.Email, user.PasswordHash, user.Name, user.Role, user.AvatarURL,
	).Scan(&user.CreatedAt)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	var u entities.User
	err := r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=$1", email,
	).Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.AvatarURL, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	var u entities.User
	err := r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=$1", id,
	).Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.AvatarURL, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ResolveTenant maps a user to its owning tenant. pgx.ErrNoRows doubles as
// "no tenant", which callers must surface exactly like a missing resource.
func (r *UserRepository) ResolveTenant(ctx context.Context, userID string) (string, error) {
	var tenantID string
	err := r.db.QueryRow(ctx, "SELECT tenant_id FROM users WHERE id=$1", userID).Scan(&tenantID)
	if err != nil {
		return "", err
	}
	return tenantID, nil
}
