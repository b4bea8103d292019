package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `
	cv.id, cv.tenant_id, cv.channel, cv.customer_id, cv.agent_id, cv.status,
	COALESCE(cv.last_message, ''), cv.last_message_at, cv.metadata,
	cv.created_at, cv.updated_at, COALESCE(cu.name, '')
`

func scanConversation(row pgx.Row) (*entities.Conversation, error) {
	var c entities.Conversation
	err := row.Scan(&c.ID, &c.TenantID, &c.Channel, &c.CustomerID, &c.AgentID, &c.Status,
		&c.LastMessage, &c.LastMessageAt, &c.Metadata, &c.CreatedAt, &c.UpdatedAt, &c.CustomerName)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ResolveOrCreate finds the conversation for (tenant, channel, customer) or
// creates one with status open. The unique index on that triple is the
// serialization point: concurrent racers insert-or-lose and then read the
// winner, so exactly one conversation ever exists per key.
func (r *ConversationRepository) ResolveOrCreate(ctx context.Context, tenantID string, channel entities.ChannelType, customerID string) (*entities.Conversation, bool, error) {
	var id string
	err := r.db.QueryRow(ctx, `
		INSERT INTO conversations (id, tenant_id, channel, customer_id, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'open', '{}', NOW(), NOW())
		ON CONFLICT (tenant_id, channel, customer_id) DO NOTHING
		RETURNING id
	`, uuid.NewString(), tenantID, channel, customerID).Scan(&id)

	created := true
	if err == pgx.ErrNoRows {
		// Lost the race or the conversation already existed.
		created = false
		err = r.db.QueryRow(ctx,
			"SELECT id FROM conversations WHERE tenant_id=$1 AND channel=$2 AND customer_id=$3",
			tenantID, channel, customerID).Scan(&id)
	}
	if err != nil {
		return nil, false, err
	}

	conv, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, false, err
	}
	return conv, created, nil
}

// Create inserts an agent-initiated conversation.
func (r *ConversationRepository) Create(ctx context.Context, conv *entities.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.Status == "" {
		conv.Status = entities.StatusOpen
	}
	if conv.Metadata == nil {
		conv.Metadata = entities.Metadata{}
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO conversations (id, tenant_id, channel, customer_id, agent_id, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`, conv.ID, conv.TenantID, conv.Channel, conv.CustomerID, conv.AgentID, conv.Status, conv.Metadata,
	).Scan(&conv.CreatedAt, &conv.UpdatedAt)
}

func (r *ConversationRepository) GetByID(ctx context.Context, tenantID, id string) (*entities.Conversation, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations cv
		LEFT JOIN customers cu ON cu.id = cv.customer_id
		WHERE cv.id = $1 AND cv.tenant_id = $2
	`, id, tenantID)
	return scanConversation(row)
}

// List returns the tenant's conversations ordered by latest activity.
// An empty status filters nothing.
func (r *ConversationRepository) List(ctx context.Context, tenantID string, status entities.ConversationStatus, page, perPage int) ([]entities.Conversation, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}

	where := "WHERE cv.tenant_id = $1"
	args := []any{tenantID}
	if status != "" {
		args = append(args, status)
		where += " AND cv.status = $2"
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM conversations cv "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`
		SELECT `+conversationColumns+`
		FROM conversations cv
		LEFT JOIN customers cu ON cu.id = cv.customer_id
		%s
		ORDER BY cv.last_message_at DESC NULLS LAST, cv.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	conversations := []entities.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, 0, err
		}
		conversations = append(conversations, *conv)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return conversations, total, nil
}

// TouchLastMessage updates the preview and last-activity timestamp.
// Fire-and-forget from the caller's perspective; errors are for logging only.
func (r *ConversationRepository) TouchLastMessage(ctx context.Context, conversationID, preview string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations SET last_message = $2, last_message_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, conversationID, preview)
	return err
}

// SetStatus sets any status on any prior state. Intentionally permissive;
// the only guard is tenant ownership.
func (r *ConversationRepository) SetStatus(ctx context.Context, tenantID, id string, status entities.ConversationStatus) (*entities.Conversation, error) {
	ct, err := r.db.Exec(ctx, `
		UPDATE conversations SET status = $3, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, status)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}
	return r.GetByID(ctx, tenantID, id)
}

// AssignAgent sets the agent and forces status to in_progress in one update.
func (r *ConversationRepository) AssignAgent(ctx context.Context, tenantID, id, agentID string) (*entities.Conversation, error) {
	ct, err := r.db.Exec(ctx, `
		UPDATE conversations SET agent_id = $3, status = 'in_progress', updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, agentID)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}
	return r.GetByID(ctx, tenantID, id)
}
