package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository tracks per-tenant daily message counters. All writes are
// best-effort side effects of the ingestion pipeline; callers log failures
// and move on.
type UsageRepository struct {
	db *pgxpool.Pool
}

type DailyUsage struct {
	Date             time.Time `json:"date"`
	MessagesSent     int       `json:"messagesSent"`
	MessagesReceived int       `json:"messagesReceived"`
}

func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db}
}

// IncrementSent increments messages_sent for today.
func (r *UsageRepository) IncrementSent(ctx context.Context, tenantID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_usage (tenant_id, date, messages_sent, messages_received)
		VALUES ($1, CURRENT_DATE, 1, 0)
		ON CONFLICT (tenant_id, date)
		DO UPDATE SET messages_sent = message_usage.messages_sent + 1
	`, tenantID)
	return err
}

// IncrementReceived increments messages_received for today.
func (r *UsageRepository) IncrementReceived(ctx context.Context, tenantID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_usage (tenant_id, date, messages_sent, messages_received)
		VALUES ($1, CURRENT_DATE, 0, 1)
		ON CONFLICT (tenant_id, date)
		DO UPDATE SET messages_received = message_usage.messages_received + 1
	`, tenantID)
	return err
}

// GetUsageHistory returns the last N days of usage for a tenant.
func (r *UsageRepository) GetUsageHistory(ctx context.Context, tenantID string, days int) ([]DailyUsage, error) {
	startDate := time.Now().AddDate(0, 0, -days).Format("2006-01-02")
	rows, err := r.db.Query(ctx, `
		SELECT date, messages_sent, messages_received
		FROM message_usage
		WHERE tenant_id = $1 AND date >= $2
		ORDER BY date ASC
	`, tenantID, startDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := []DailyUsage{}
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.MessagesSent, &u.MessagesReceived); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
