package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-payment-approvals/app/entity"
)

const maxCompareAttempts = 5

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
	// ErrStatusConflict means the stored status differs from the expected one.
	ErrStatusConflict = errors.New("payment status conflict")
	// ErrWriteContention means the status matched but concurrent writers kept
	// winning the version race. Nothing was written; the call is safe to retry.
	ErrWriteContention = errors.New("payment write contention")
)

const paymentColumns = `id, submitter_id, submitter_handle, plan_code,
	proof_text, proof_photo_ref, proof_document_ref, locale,
	status, decided_at, reviewer_id,
	credential, reviewer_notified_at, submitter_notified_at,
	version, created_at, updated_at`

type PaymentFilter struct {
	HasStatus   bool
	Status      string
	SubmitterID int64
	Limit       int32
	Offset      int32
}

// MutateFunc changes the mutable fields of a record copy inside CompareAndUpdate.
type MutateFunc func(payment *entity.Payment) error

type PaymentRepository struct {
	db      DBTX
	dialect Dialect
	ids     IDGenerator
}

func NewPaymentRepository(db DBTX, dialect Dialect, ids IDGenerator) *PaymentRepository {
	return &PaymentRepository{db: db, dialect: dialect, ids: ids}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	id := r.ids.NextID()
	if payment.Version == 0 {
		payment.Version = 1
	}

	query := `
		INSERT INTO payment_requests (
			id, submitter_id, submitter_handle, plan_code,
			proof_text, proof_photo_ref, proof_document_ref, locale,
			status, decided_at, reviewer_id,
			credential, reviewer_notified_at, submitter_notified_at,
			version, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		id,
		payment.SubmitterID,
		nullableStringValue(payment.SubmitterHandle),
		payment.PlanCode,
		nullableStringValue(payment.Proof.Text),
		nullableStringValue(payment.Proof.PhotoRef),
		nullableStringValue(payment.Proof.DocumentRef),
		payment.Locale,
		payment.Status,
		nullableTimeValue(payment.DecidedAt),
		nullableInt64Value(payment.ReviewerID),
		nullableStringValue(payment.Credential),
		nullableTimeValue(payment.ReviewerNotifiedAt),
		nullableTimeValue(payment.SubmitterNotifiedAt),
		payment.Version,
		payment.CreatedAt.UTC(),
		payment.UpdatedAt.UTC(),
	)
	if err != nil {
		if r.dialect.isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	payment.ID = id
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uint64) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE id = ?`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return payment, nil
}

// CompareAndUpdate applies mutate to the record only while its status equals
// expectedStatus. The write is conditioned on the version that was read, so a
// concurrent writer either loses cleanly or forces a re-read. On a status
// mismatch the current record is returned together with ErrStatusConflict.
func (r *PaymentRepository) CompareAndUpdate(ctx context.Context, id uint64, expectedStatus string, mutate MutateFunc) (*entity.Payment, error) {
	query := `
		UPDATE payment_requests SET
			status = ?,
			decided_at = ?,
			reviewer_id = ?,
			credential = ?,
			reviewer_notified_at = ?,
			submitter_notified_at = ?,
			version = ?,
			updated_at = ?
		WHERE id = ? AND status = ? AND version = ?
	`

	for attempt := 0; attempt < maxCompareAttempts; attempt++ {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrPaymentNotFound
		}
		if current.Status != expectedStatus {
			return current, ErrStatusConflict
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			return nil, err
		}
		next.Version = current.Version + 1
		next.UpdatedAt = time.Now().UTC()

		result, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
			next.Status,
			nullableTimeValue(next.DecidedAt),
			nullableInt64Value(next.ReviewerID),
			nullableStringValue(next.Credential),
			nullableTimeValue(next.ReviewerNotifiedAt),
			nullableTimeValue(next.SubmitterNotifiedAt),
			next.Version,
			next.UpdatedAt,
			id,
			expectedStatus,
			current.Version,
		)
		if err != nil {
			return nil, err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 1 {
			return next, nil
		}
	}

	return nil, ErrWriteContention
}

func (r *PaymentRepository) List(ctx context.Context, filter PaymentFilter) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests`

	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)

	if filter.HasStatus {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.SubmitterID != 0 {
		conditions = append(conditions, "submitter_id = ?")
		args = append(args, filter.SubmitterID)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	return r.queryPayments(ctx, query, args...)
}

// ListReviewerUndelivered returns pending records created at or before
// createdBefore whose review card was never delivered.
func (r *PaymentRepository) ListReviewerUndelivered(ctx context.Context, createdBefore time.Time, limit int32) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests
		WHERE status = ?
		  AND reviewer_notified_at IS NULL
		  AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?`

	return r.queryPayments(ctx, query, entity.StatusPending, createdBefore.UTC(), limit)
}

// ListSubmitterUndelivered returns decided records whose outcome never reached
// the submitter.
func (r *PaymentRepository) ListSubmitterUndelivered(ctx context.Context, decidedBefore time.Time, limit int32) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests
		WHERE status IN (?, ?)
		  AND submitter_notified_at IS NULL
		  AND decided_at <= ?
		ORDER BY decided_at ASC
		LIMIT ?`

	return r.queryPayments(ctx, query, entity.StatusConfirmed, entity.StatusRejected, decidedBefore.UTC(), limit)
}

func (r *PaymentRepository) queryPayments(ctx context.Context, query string, args ...interface{}) ([]*entity.Payment, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item, err := scanPaymentFromRows(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var submitterHandle sql.NullString
	var proofText sql.NullString
	var proofPhoto sql.NullString
	var proofDocument sql.NullString
	var decidedAt sql.NullTime
	var reviewerID sql.NullInt64
	var credential sql.NullString
	var reviewerNotifiedAt sql.NullTime
	var submitterNotifiedAt sql.NullTime

	err := scan.Scan(
		&payment.ID,
		&payment.SubmitterID,
		&submitterHandle,
		&payment.PlanCode,
		&proofText,
		&proofPhoto,
		&proofDocument,
		&payment.Locale,
		&payment.Status,
		&decidedAt,
		&reviewerID,
		&credential,
		&reviewerNotifiedAt,
		&submitterNotifiedAt,
		&payment.Version,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	payment.SubmitterHandle = stringPtrFromNull(submitterHandle)
	payment.Proof = entity.Proof{
		Text:        stringPtrFromNull(proofText),
		PhotoRef:    stringPtrFromNull(proofPhoto),
		DocumentRef: stringPtrFromNull(proofDocument),
	}
	payment.DecidedAt = timePtrFromNull(decidedAt)
	payment.ReviewerID = int64PtrFromNull(reviewerID)
	payment.Credential = stringPtrFromNull(credential)
	payment.ReviewerNotifiedAt = timePtrFromNull(reviewerNotifiedAt)
	payment.SubmitterNotifiedAt = timePtrFromNull(submitterNotifiedAt)
	payment.CreatedAt = payment.CreatedAt.UTC()
	payment.UpdatedAt = payment.UpdatedAt.UTC()

	return nil
}

func scanPaymentFromRows(rows *sql.Rows) (*entity.Payment, error) {
	item := &entity.Payment{}
	if err := scanPayment(rows, item); err != nil {
		return nil, err
	}
	return item, nil
}
