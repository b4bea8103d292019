package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tenants (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(100) UNIQUE NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create tenants table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL REFERENCES tenants(id),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			role VARCHAR(20) DEFAULT 'agent',
			avatar_url TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS customers (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL REFERENCES tenants(id),
			external_id VARCHAR(255) NOT NULL,
			name VARCHAR(255),
			phone VARCHAR(50),
			avatar_url TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE (tenant_id, external_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("create customers table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS channels (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL REFERENCES tenants(id),
			type VARCHAR(20) NOT NULL,
			name VARCHAR(255),
			secret VARCHAR(255) DEFAULT '',
			config JSONB DEFAULT '{}',
			active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create channels table: %w", err)
	}

	// The uniqueness constraint is what makes concurrent first-contact
	// webhooks converge on a single conversation.
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL REFERENCES tenants(id),
			channel VARCHAR(20) NOT NULL,
			customer_id UUID NOT NULL REFERENCES customers(id),
			agent_id UUID REFERENCES users(id),
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			last_message TEXT DEFAULT '',
			last_message_at TIMESTAMPTZ,
			metadata JSONB DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE (tenant_id, channel, customer_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("create conversations table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES tenants(id),
			conversation_id UUID NOT NULL REFERENCES conversations(id),
			sender_type VARCHAR(20) NOT NULL,
			sender_id UUID,
			content TEXT NOT NULL,
			content_type VARCHAR(20) NOT NULL DEFAULT 'text',
			metadata JSONB DEFAULT '{}',
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			read_at TIMESTAMPTZ,
			reply_to_id UUID,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}

	p.Pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
		ON messages (conversation_id, created_at);`)
	p.Pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_messages_unread
		ON messages (conversation_id) WHERE is_read = FALSE;`)
	p.Pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_conversations_tenant_activity
		ON conversations (tenant_id, last_message_at DESC);`)

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS message_usage (
			id SERIAL PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES tenants(id),
			date DATE NOT NULL,
			messages_sent INT DEFAULT 0,
			messages_received INT DEFAULT 0,
			UNIQUE (tenant_id, date)
		);
	`)
	if err != nil {
		return fmt.Errorf("create message_usage table: %w", err)
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
