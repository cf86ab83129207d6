package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
)

var (
	// ErrCodeTaken means the generated ticket code already exists; the issuer
	// retries with a fresh code, it never overwrites.
	ErrCodeTaken      = errors.New("ticket code already exists")
	ErrTicketNotFound = errors.New("ticket not found")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is a pending notification persisted in the same transaction as
// the durable write that caused it.
type OutboxEvent struct {
	ID        int64
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

const (
	EventPurchaseCompleted    = "purchase.completed"
	EventPremiumProductErased = "product.deleted.premium-owner"
)

type TicketRepository struct {
	db *sql.DB
}

func NewTicketRepository(cred *Credentials) (*TicketRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &TicketRepository{db: db}, nil
}

func (r *TicketRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "tickets_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// SaveTicket durably persists the ticket together with its purchase.completed
// outbox event in one transaction. A code collision aborts the whole
// transaction with ErrCodeTaken; nothing is written in that case.
func (r *TicketRepository) SaveTicket(ctx context.Context, ticket *domain.Ticket) error {
	linesJSON, err := json.Marshal(ticket.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket lines: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ticket tx: %w", err)
	}
	defer tx.Rollback()

	insertTicket := `INSERT INTO tickets (code, purchaser, amount, lines, purchased_at)
	                 VALUES ($1, $2, $3, $4, $5)`

	_, insertErr := tx.ExecContext(ctx, insertTicket,
		ticket.Code,
		ticket.Purchaser,
		ticket.Amount,
		linesJSON,
		ticket.PurchasedAt)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrCodeTaken
		}
		return fmt.Errorf("insert ticket: %w", insertErr)
	}

	payload, err := json.Marshal(purchaseCompletedPayload{
		Code:      ticket.Code,
		Purchaser: ticket.Purchaser,
		Amount:    ticket.Amount.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	insertEvent := `INSERT INTO outbox_events (event_type, payload) VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, insertEvent, EventPurchaseCompleted, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ticket tx: %w", err)
	}
	return nil
}

type purchaseCompletedPayload struct {
	Code      string `json:"code"`
	Purchaser string `json:"purchaser"`
	Amount    string `json:"amount"`
}

func (r *TicketRepository) GetTicket(ctx context.Context, code string) (*domain.Ticket, error) {
	query := `SELECT code, purchaser, amount, lines, purchased_at FROM tickets WHERE code = $1`

	var ticket domain.Ticket
	var linesJSON []byte
	var amount decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&ticket.Code,
		&ticket.Purchaser,
		&amount,
		&linesJSON,
		&ticket.PurchasedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query ticket by code: %w", err)
	}

	ticket.Amount = amount
	if err := json.Unmarshal(linesJSON, &ticket.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal ticket lines: %w", err)
	}
	return &ticket, nil
}

func (r *TicketRepository) ListTicketsByPurchaser(ctx context.Context, email string) ([]*domain.Ticket, error) {
	query := `SELECT code, purchaser, amount, lines, purchased_at
	          FROM tickets WHERE purchaser = $1 ORDER BY purchased_at DESC`

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("query tickets by purchaser: %w", err)
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		var linesJSON []byte
		if err := rows.Scan(
			&ticket.Code,
			&ticket.Purchaser,
			&ticket.Amount,
			&linesJSON,
			&ticket.PurchasedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ticket row: %w", err)
		}
		if err := json.Unmarshal(linesJSON, &ticket.Lines); err != nil {
			return nil, fmt.Errorf("unmarshal ticket lines: %w", err)
		}
		tickets = append(tickets, &ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tickets, nil
}

// InsertEvent records a standalone notification event, outside any ticket
// transaction (e.g. product deletions owned by premium users).
func (r *TicketRepository) InsertEvent(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `INSERT INTO outbox_events (event_type, payload) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, eventType, data); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *TicketRepository) GetUnpublishedEvents(ctx context.Context, limit int) ([]OutboxEvent, error) {
	query := `SELECT id, event_type, payload, created_at
	          FROM outbox_events WHERE published_at IS NULL ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *TicketRepository) MarkEventPublished(ctx context.Context, id int64) error {
	query := `UPDATE outbox_events SET published_at = NOW() WHERE id = $1 AND published_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	return nil
}

func (r *TicketRepository) Close() error {
	return r.db.Close()
}
