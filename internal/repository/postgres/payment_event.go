package postgres

import (
	"context"

	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/repository"
)

type paymentEventRepository struct {
	db DBTX
}

func NewPaymentEventRepository(db DBTX) repository.PaymentEventRepository {
	return &paymentEventRepository{db: db}
}

func (r *paymentEventRepository) Record(ctx context.Context, eventID, email string) (bool, error) {
	query := `INSERT INTO payment_events (event_id, email) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, eventID, email)
	if err != nil {
		return false, storeErr("record payment event", err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("INSERT payment_events", n, err, "event_id", eventID)
	if err != nil {
		return false, storeErr("record payment event", err)
	}
	return n == 1, nil
}

// Forget removes a recorded event so a redelivery can be processed again.
func (r *paymentEventRepository) Forget(ctx context.Context, eventID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payment_events WHERE event_id = $1`, eventID); err != nil {
		return storeErr("forget payment event", err)
	}
	return nil
}
