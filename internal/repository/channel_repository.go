package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
)

type ChannelRepository struct {
	db *pgxpool.Pool
}

func NewChannelRepository(db *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{db: db}
}

const channelColumns = "id, tenant_id, type, COALESCE(name, ''), COALESCE(secret, ''), config, active, created_at"

func (r *ChannelRepository) scanChannel(row interface{ Scan(...any) error }) (*entities.Channel, error) {
	var ch entities.Channel
	err := row.Scan(&ch.ID, &ch.TenantID, &ch.Type, &ch.Name, &ch.Secret, &ch.Config, &ch.Active, &ch.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetByTypeAndID resolves a channel addressed by a webhook URL. Unknown or
// inactive channels come back as pgx.ErrNoRows so the caller can 404.
func (r *ChannelRepository) GetByTypeAndID(ctx context.Context, channelType entities.ChannelType, id string) (*entities.Channel, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+channelColumns+" FROM channels WHERE id=$1 AND type=$2 AND active",
		id, channelType)
	return r.scanChannel(row)
}

// GetByTenantAndType returns a tenant's active channel of a type, oldest
// first when several exist. Native channel clients (whatsapp, telegram)
// resolve their channel row through this.
func (r *ChannelRepository) GetByTenantAndType(ctx context.Context, tenantID string, channelType entities.ChannelType) (*entities.Channel, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+channelColumns+" FROM channels WHERE tenant_id=$1 AND type=$2 AND active ORDER BY created_at ASC LIMIT 1",
		tenantID, channelType)
	return r.scanChannel(row)
}

// GetDefaultByType returns the oldest active channel of a type. The n8n
// webhook carries no channel id, only a channel type; deployments wire that
// ingress to a single default channel per type.
func (r *ChannelRepository) GetDefaultByType(ctx context.Context, channelType entities.ChannelType) (*entities.Channel, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+channelColumns+" FROM channels WHERE type=$1 AND active ORDER BY created_at ASC LIMIT 1",
		channelType)
	return r.scanChannel(row)
}
