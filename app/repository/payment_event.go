package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-payment-approvals/app/entity"
)

type PaymentEventRepository struct {
	db      DBTX
	dialect Dialect
}

func NewPaymentEventRepository(db DBTX, dialect Dialect) *PaymentEventRepository {
	return &PaymentEventRepository{db: db, dialect: dialect}
}

func (r *PaymentEventRepository) Create(ctx context.Context, event *entity.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (
			payment_id, event_type, old_status, new_status, actor_id, detail, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	args := []interface{}{
		event.PaymentID,
		event.EventType,
		nullableStringValue(event.OldStatus),
		event.NewStatus,
		nullableInt64Value(event.ActorID),
		nullableStringValue(event.Detail),
		event.CreatedAt.UTC(),
	}

	if !r.dialect.lastInsertID {
		var id uint64
		if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return err
		}
		event.ID = id
		return nil
	}

	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}

func (r *PaymentEventRepository) ListByPayment(ctx context.Context, paymentID uint64) ([]*entity.PaymentEvent, error) {
	query := `
		SELECT id, payment_id, event_type, old_status, new_status, actor_id, detail, created_at
		FROM payment_events
		WHERE payment_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*entity.PaymentEvent, 0)
	for rows.Next() {
		item := &entity.PaymentEvent{}
		var oldStatus, detail sql.NullString
		var actorID sql.NullInt64
		if err := rows.Scan(&item.ID, &item.PaymentID, &item.EventType, &oldStatus, &item.NewStatus, &actorID, &detail, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.OldStatus = stringPtrFromNull(oldStatus)
		item.ActorID = int64PtrFromNull(actorID)
		item.Detail = stringPtrFromNull(detail)
		events = append(events, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
