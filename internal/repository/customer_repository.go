package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
)

type CustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// ResolveOrCreate finds the customer the channel identifies by externalID or
// creates one. Same insert-or-lose pattern as conversations: the unique index
// on (tenant_id, external_id) resolves concurrent creates to a single row.
func (r *CustomerRepository) ResolveOrCreate(ctx context.Context, tenantID, externalID, name, phone string) (*entities.Customer, bool, error) {
	var id string
	err := r.db.QueryRow(ctx, `
		INSERT INTO customers (id, tenant_id, external_id, name, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (tenant_id, external_id) DO NOTHING
		RETURNING id
	`, uuid.NewString(), tenantID, externalID, name, phone).Scan(&id)

	created := true
	if err == pgx.ErrNoRows {
		created = false
		err = r.db.QueryRow(ctx,
			"SELECT id FROM customers WHERE tenant_id=$1 AND external_id=$2",
			tenantID, externalID).Scan(&id)
	}
	if err != nil {
		return nil, false, err
	}

	customer, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, false, err
	}
	return customer, created, nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, tenantID, id string) (*entities.Customer, error) {
	var c entities.Customer
	err := r.db.QueryRow(ctx, `
		SELECT id, tenant_id, external_id, COALESCE(name, ''), COALESCE(phone, ''), COALESCE(avatar_url, ''), created_at
		FROM customers WHERE id=$1 AND tenant_id=$2
	`, id, tenantID).Scan(&c.ID, &c.TenantID, &c.ExternalID, &c.Name, &c.Phone, &c.AvatarURL, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
