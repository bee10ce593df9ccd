package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/pothole-dashboard/internal/domain"
)

// TicketRepository encapsulates ticket reads and status updates. Ticket
// creation belongs to the external detection pipeline and has no place
// here.
type TicketRepository interface {
	ListWithReports(ctx context.Context) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

// ListWithReports fetches every ticket joined with its pothole metadata,
// newest first.
func (r *ticketRepository) ListWithReports(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT t.id, t.status, t.created_at, t.updated_at,
               p.latitude, p.longitude, p.severity, p.image_url, p.description, p.severity_score
        FROM tickets t
        JOIN pothole_reports p ON p.ticket_id = t.id
        ORDER BY t.created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// UpdateStatus transitions a ticket's status and bumps updated_at.
func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.Report.Latitude,
			&ticket.Report.Longitude,
			&ticket.Report.Severity,
			&ticket.Report.ImageURL,
			&ticket.Report.Description,
			&ticket.Report.SeverityScore,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
