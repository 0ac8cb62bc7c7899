package utils

import (
	"tbs/src/db"
	"tbs/src/models"
	"tbs/src/types"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	gormDB, mock, err := db.NewMockDB()
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	return gormDB, mock
}

func permutations(ops []types.PaymentStatus) [][]types.PaymentStatus {
	if len(ops) <= 1 {
		return [][]types.PaymentStatus{append([]types.PaymentStatus{}, ops...)}
	}
	var out [][]types.PaymentStatus
	for i := range ops {
		rest := make([]types.PaymentStatus, 0, len(ops)-1)
		rest = append(rest, ops[:i]...)
		rest = append(rest, ops[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]types.PaymentStatus{ops[i]}, p...))
		}
	}
	return out
}

// Any sequence of transition attempts, in any order and with duplicates, must
// settle on the first terminal state the sequence reaches; nothing overwrites
// a terminal state afterwards.
func TestPaymentLatticeFirstTerminalWins(t *testing.T) {
	ops := []types.PaymentStatus{
		types.PAYMENT_PROCESSING,
		types.PAYMENT_COMPLETED,
		types.PAYMENT_FAILED,
		types.PAYMENT_CANCELED,
	}
	for _, seq := range permutations(ops) {
		// Duplicate every delivery once, as the gateway is allowed to do.
		doubled := make([]types.PaymentStatus, 0, len(seq)*2)
		for _, op := range seq {
			doubled = append(doubled, op, op)
		}

		current := types.PAYMENT_PENDING
		var firstTerminal types.PaymentStatus
		for _, op := range doubled {
			if firstTerminal == "" && op.Terminal() {
				firstTerminal = op
			}
			next, fresh := NextPaymentStatus(current, op)
			if current.Terminal() {
				assert.False(t, fresh)
				assert.Equal(t, current, next)
			}
			current = next
		}
		assert.Equal(t, firstTerminal, current, "sequence %v", doubled)
	}
}

func TestNextPaymentStatusAllowsPendingToCompleted(t *testing.T) {
	// Webhook may beat the initiation path; the guard is "is the current
	// state terminal", not "is it exactly processing".
	next, fresh := NextPaymentStatus(types.PAYMENT_PENDING, types.PAYMENT_COMPLETED)
	assert.True(t, fresh)
	assert.Equal(t, types.PAYMENT_COMPLETED, next)
}

func TestOutcomeForNotification(t *testing.T) {
	assert.Equal(t, types.PAYMENT_COMPLETED, OutcomeForNotification(types.GATEWAY_STATUS_SUCCESS, types.GATEWAY_CODE_SUCCESS))
	// Success literal with a failing code is not success.
	assert.Equal(t, types.PAYMENT_FAILED, OutcomeForNotification(types.GATEWAY_STATUS_SUCCESS, 500))
	assert.Equal(t, types.PAYMENT_FAILED, OutcomeForNotification(types.GATEWAY_STATUS_FAILED, types.GATEWAY_CODE_SUCCESS))
	// Cancellation only from its own literal.
	assert.Equal(t, types.PAYMENT_CANCELED, OutcomeForNotification(types.GATEWAY_STATUS_CANCELED, 0))
}

func TestApplyGatewayOutcomeFresh(t *testing.T) {
	d, mock := newMockDB(t)
	db.NewDB(d)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "bookings"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	fresh := false
	err := d.Transaction(func(tx *gorm.DB) error {
		f, err := ApplyGatewayOutcome(tx, 1, types.PAYMENT_COMPLETED, "txn-1", 1200.00)
		fresh = f
		return err
	})

	assert.Nil(t, err)
	assert.True(t, fresh)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestApplyGatewayOutcomeIdempotentNoOp(t *testing.T) {
	d, mock := newMockDB(t)
	db.NewDB(d)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "bookings"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	fresh := true
	err := d.Transaction(func(tx *gorm.DB) error {
		f, err := ApplyGatewayOutcome(tx, 1, types.PAYMENT_FAILED, "", 0)
		fresh = f
		return err
	})

	assert.Nil(t, err)
	assert.False(t, fresh)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestIssueTicketsSkipsWhenAlreadyIssued(t *testing.T) {
	d, mock := newMockDB(t)
	db.NewDB(d)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectCommit()

	booking := &models.Booking{
		ID:      1,
		EventID: 7,
		BookingItems: types.BookingItems{
			{SeatType: "GA", Quantity: 2, PricePaid: 600, CostAtBooking: 600},
		},
	}
	err := d.Transaction(func(tx *gorm.DB) error {
		return IssueTickets(tx, booking)
	})

	assert.Nil(t, err)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestIssueTicketsCreatesOneRowPerUnit(t *testing.T) {
	d, mock := newMockDB(t)
	db.NewDB(d)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT .* FROM "event_tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "seat_type", "price", "capacity", "sold_count"}).
			AddRow(3, 7, "GA", 600.0, 100, 5))
	mock.ExpectQuery(`INSERT INTO "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(`INSERT INTO "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectExec(`UPDATE "event_tickets"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking := &models.Booking{
		ID:      1,
		EventID: 7,
		BookingItems: types.BookingItems{
			{SeatType: "GA", Quantity: 2, PricePaid: 600, CostAtBooking: 600},
		},
	}
	err := d.Transaction(func(tx *gorm.DB) error {
		return IssueTickets(tx, booking)
	})

	assert.Nil(t, err)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestIssueTicketsDuplicateRowMeansAlreadyIssued(t *testing.T) {
	d, mock := newMockDB(t)
	db.NewDB(d)

	// A concurrent issuer that wins the race after our existence check leaves
	// the unique index to reject the insert; the tickets exist, so issuance
	// is satisfied, not failed.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT .* FROM "event_tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "seat_type", "price", "capacity", "sold_count"}).
			AddRow(3, 7, "GA", 600.0, 100, 5))
	mock.ExpectQuery(`INSERT INTO "tickets"`).WillReturnError(gorm.ErrDuplicatedKey)
	mock.ExpectCommit()

	booking := &models.Booking{
		ID:      1,
		EventID: 7,
		BookingItems: types.BookingItems{
			{SeatType: "GA", Quantity: 2, PricePaid: 600, CostAtBooking: 600},
		},
	}
	err := d.Transaction(func(tx *gorm.DB) error {
		return IssueTickets(tx, booking)
	})

	assert.Nil(t, err)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestIssueTicketsCreatesMissingSeatType(t *testing.T) {
	d, mock := newMockDB(t)
	db.NewDB(d)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT .* FROM "event_tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "event_tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectQuery(`INSERT INTO "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
	mock.ExpectExec(`UPDATE "event_tickets"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking := &models.Booking{
		ID:      2,
		EventID: 7,
		BookingItems: types.BookingItems{
			{SeatType: "Balcony", Quantity: 1, PricePaid: 80, CostAtBooking: 80},
		},
	}
	err := d.Transaction(func(tx *gorm.DB) error {
		return IssueTickets(tx, booking)
	})

	assert.Nil(t, err)
	assert.Nil(t, mock.ExpectationsWereMet())
}
