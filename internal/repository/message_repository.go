package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// ListParams combines offset pagination with optional creation-time cursors.
// Both may be set on the same request; the filters stack.
type ListParams struct {
	Page    int
	PerPage int
	Before  *time.Time
	After   *time.Time
}

// Append persists a new message in the conversation. The conversation must
// exist under the given tenant; otherwise pgx.ErrNoRows is returned and
// nothing is written. The initial read flag follows the sender type.
func (r *MessageRepository) Append(ctx context.Context, msg *entities.Message) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM conversations WHERE id=$1 AND tenant_id=$2)",
		msg.ConversationID, msg.TenantID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.IsRead = msg.SenderType.InitialRead()
	if msg.Metadata == nil {
		msg.Metadata = entities.Metadata{}
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO messages (id, tenant_id, conversation_id, sender_type, sender_id, content, content_type, metadata, is_read, reply_to_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING created_at
	`, msg.ID, msg.TenantID, msg.ConversationID, msg.SenderType, msg.SenderID,
		msg.Content, msg.ContentType, msg.Metadata, msg.IsRead, msg.ReplyToID,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return err
	}

	// Best-effort sender display resolution; an unresolvable sender must not
	// fail the append, the fields are simply left empty.
	r.resolveSender(ctx, msg)
	return nil
}

func (r *MessageRepository) resolveSender(ctx context.Context, msg *entities.Message) {
	if msg.SenderID == nil {
		return
	}
	var query string
	switch msg.SenderType {
	case entities.SenderCustomer:
		query = "SELECT name, COALESCE(avatar_url, '') FROM customers WHERE id=$1 AND tenant_id=$2"
	case entities.SenderAgent:
		query = "SELECT name, COALESCE(avatar_url, '') FROM users WHERE id=$1 AND tenant_id=$2"
	default:
		return
	}
	_ = r.db.QueryRow(ctx, query, *msg.SenderID, msg.TenantID).Scan(&msg.SenderName, &msg.SenderAvatar)
}

// MarkRead flips unread messages to read and returns the ids that actually
// transitioned. With explicit ids it marks exactly those, scoped to the
// conversation and tenant. Without ids it marks every unread customer
// message; agent/system/bot messages are never touched implicitly.
func (r *MessageRepository) MarkRead(ctx context.Context, tenantID, conversationID string, messageIDs []string) (int64, []string, error) {
	var rows pgx.Rows
	var err error
	if len(messageIDs) > 0 {
		rows, err = r.db.Query(ctx, `
			UPDATE messages SET is_read = TRUE, read_at = NOW()
			WHERE tenant_id = $1 AND conversation_id = $2 AND id = ANY($3) AND is_read = FALSE
			RETURNING id
		`, tenantID, conversationID, messageIDs)
	} else {
		rows, err = r.db.Query(ctx, `
			UPDATE messages SET is_read = TRUE, read_at = NOW()
			WHERE tenant_id = $1 AND conversation_id = $2 AND sender_type = 'customer' AND is_read = FALSE
			RETURNING id
		`, tenantID, conversationID)
	}
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	marked := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, nil, err
		}
		marked = append(marked, id)
	}
	if rows.Err() != nil {
		return 0, nil, rows.Err()
	}
	return int64(len(marked)), marked, nil
}

// UnreadCount counts unread customer-authored messages in the conversation.
func (r *MessageRepository) UnreadCount(ctx context.Context, tenantID, conversationID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE tenant_id = $1 AND conversation_id = $2 AND sender_type = 'customer' AND is_read = FALSE
	`, tenantID, conversationID).Scan(&count)
	return count, err
}

// List returns messages oldest-first (conversation views render
// chronologically) plus the total matching count for pagination headers.
func (r *MessageRepository) List(ctx context.Context, tenantID, conversationID string, p ListParams) ([]entities.Message, int, error) {
	if p.PerPage <= 0 {
		p.PerPage = 50
	}
	if p.Page <= 0 {
		p.Page = 1
	}

	where := "WHERE tenant_id = $1 AND conversation_id = $2"
	args := []any{tenantID, conversationID}
	if p.Before != nil {
		args = append(args, *p.Before)
		where += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	if p.After != nil {
		args = append(args, *p.After)
		where += fmt.Sprintf(" AND created_at > $%d", len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM messages "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, p.PerPage, (p.Page-1)*p.PerPage)
	query := fmt.Sprintf(`
		SELECT m.id, m.tenant_id, m.conversation_id, m.sender_type, m.sender_id,
		       m.content, m.content_type, m.metadata, m.is_read, m.read_at, m.reply_to_id, m.created_at,
		       COALESCE(u.name, c.name, ''), COALESCE(u.avatar_url, c.avatar_url, '')
		FROM messages m
		LEFT JOIN users u ON m.sender_type = 'agent' AND u.id::text = m.sender_id
		LEFT JOIN customers c ON m.sender_type = 'customer' AND c.id::text = m.sender_id
		%s
		ORDER BY m.created_at ASC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := []entities.Message{}
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ConversationID, &m.SenderType, &m.SenderID,
			&m.Content, &m.ContentType, &m.Metadata, &m.IsRead, &m.ReadAt, &m.ReplyToID, &m.CreatedAt,
			&m.SenderName, &m.SenderAvatar); err != nil {
			return nil, 0, err
		}
		messages = append(messages, m)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return messages, total, nil
}
