package utils

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"tbs/src/config"
	"tbs/src/db"
	"tbs/src/lib"
	"tbs/src/models"
	"tbs/src/types"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// DefaultSeatCapacity is assumed when issuance has to create a seat type on
// the fly. Capacity is advisory; see EventTicket.
const DefaultSeatCapacity = 100

var ErrUnknownOrder = errors.New("no booking matches the given order number")

// NextPaymentStatus applies the status lattice: a terminal state is never
// overwritten, anything else moves to the requested target. The second return
// reports whether the transition is fresh. The persisted variant of this rule
// is the conditional UPDATE in ApplyGatewayOutcome.
func NextPaymentStatus(current, target types.PaymentStatus) (types.PaymentStatus, bool) {
	if current.Terminal() {
		return current, false
	}
	return target, true
}

// OutcomeForNotification maps the gateway's status/code literals to a target
// booking state. Cancellation comes only from its own literal, never from a
// generic failure.
func OutcomeForNotification(status string, code int) types.PaymentStatus {
	switch {
	case status == types.GATEWAY_STATUS_SUCCESS && code == types.GATEWAY_CODE_SUCCESS:
		return types.PAYMENT_COMPLETED
	case status == types.GATEWAY_STATUS_CANCELED:
		return types.PAYMENT_CANCELED
	default:
		return types.PAYMENT_FAILED
	}
}

// AssignOrderNo sets the booking's gateway order reference exactly once. A
// concurrent assignment loses the conditional update and reads back the value
// the winner wrote.
func AssignOrderNo(bookingID uint) (string, error) {
	d := db.GetDb()
	orderNo := lib.GenerateOrderNo(bookingID)
	err := d.Transaction(func(tx *gorm.DB) error {
		return tx.
			Model(&models.Booking{}).
			Where("id = ? AND payment_order_no IS NULL", bookingID).
			Update("payment_order_no", orderNo).
			Error
	})
	if err != nil {
		return "", err
	}
	var booking models.Booking
	if err := d.
		Model(&models.Booking{}).
		Select("payment_order_no").
		Where("id = ?", bookingID).
		First(&booking).
		Error; err != nil {
		return "", err
	}
	if booking.PaymentOrderNo == nil {
		return "", fmt.Errorf("order number missing for booking %d", bookingID)
	}
	return *booking.PaymentOrderNo, nil
}

// MarkProcessing moves a booking out of PENDING once a payment URL has been
// obtained. Conditional on the current state so duplicate initiations and
// already-terminal rows are no-ops.
func MarkProcessing(bookingID uint) error {
	d := db.GetDb()
	return d.Transaction(func(tx *gorm.DB) error {
		return tx.
			Model(&models.Booking{}).
			Where("id = ? AND payment_status = ?", bookingID, types.PAYMENT_PENDING).
			Update("payment_status", types.PAYMENT_PROCESSING).
			Error
	})
}

// RollbackProcessing returns a booking to PENDING after a failed or timed-out
// gateway call so the user can retry checkout. Terminal states are untouched.
func RollbackProcessing(bookingID uint) error {
	d := db.GetDb()
	return d.Transaction(func(tx *gorm.DB) error {
		return tx.
			Model(&models.Booking{}).
			Where("id = ? AND payment_status = ?", bookingID, types.PAYMENT_PROCESSING).
			Update("payment_status", types.PAYMENT_PENDING).
			Error
	})
}

// ApplyGatewayOutcome writes a terminal state as a single conditional update:
// set status where the current status is not already terminal. Returns whether
// the transition was fresh; zero rows on an existing booking is the idempotent
// duplicate-delivery case and is success, not an error.
func ApplyGatewayOutcome(tx *gorm.DB, bookingID uint, target types.PaymentStatus, transactionID string, paidAmount float64) (bool, error) {
	updates := map[string]any{"payment_status": target}
	if transactionID != "" {
		updates["transaction_id"] = transactionID
	}
	if paidAmount > 0 {
		updates["paid_amount"] = paidAmount
	}
	res := tx.
		Model(&models.Booking{}).
		Where("id = ? AND payment_status NOT IN ?", bookingID, types.TerminalPaymentStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindBookingByOrderNo maps a gateway order reference back to the booking,
// consulting the redis cache first.
func FindBookingByOrderNo(orderNo string) (*models.Booking, error) {
	d := db.GetDb()
	var booking models.Booking
	if id := lib.LookupOrderBooking(orderNo); id > 0 {
		if err := d.Model(&models.Booking{}).Where("id = ?", id).First(&booking).Error; err == nil {
			return &booking, nil
		}
	}
	err := d.
		Model(&models.Booking{}).
		Where("payment_order_no = ?", orderNo).
		First(&booking).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownOrder
		}
		return nil, err
	}
	return &booking, nil
}

// IssueTickets materializes one Ticket row per unit of quantity in each line
// item of a completed booking. Re-invocation is a no-op: existing rows are
// checked first, and the unique (booking, seat type, seq) index backstops a
// concurrent duplicate.
func IssueTickets(tx *gorm.DB, booking *models.Booking) error {
	var existing int64
	if err := tx.
		Model(&models.Ticket{}).
		Where("booking_id = ?", booking.ID).
		Count(&existing).
		Error; err != nil {
		return err
	}
	if existing > 0 {
		log.Printf("Tickets already issued for booking %d, skipping\n", booking.ID)
		return nil
	}
	for _, item := range booking.BookingItems {
		if item.Quantity == 0 {
			continue
		}
		var seat models.EventTicket
		err := tx.
			Where("event_id = ? AND seat_type = ?", booking.EventID, item.SeatType).
			First(&seat).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			seat = models.EventTicket{
				EventID:  booking.EventID,
				SeatType: item.SeatType,
				Price:    item.PricePaid,
				Capacity: DefaultSeatCapacity,
			}
			if err := tx.Create(&seat).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		for seq := uint(1); seq <= item.Quantity; seq++ {
			ticket := models.Ticket{
				EventID:       booking.EventID,
				EventDetailID: seat.ID,
				BookingID:     booking.ID,
				Seq:           seq,
				Status:        types.TICKET_ACTIVE,
			}
			if err := tx.Create(&ticket).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					log.Printf("Tickets for booking %d already created by a concurrent issuer, skipping\n", booking.ID)
					return nil
				}
				return err
			}
		}
		if err := tx.
			Model(&models.EventTicket{}).
			Where("id = ?", seat.ID).
			Update("sold_count", gorm.Expr("sold_count + ?", item.Quantity)).
			Error; err != nil {
			return err
		}
	}
	return nil
}

// InitiateGatewayPayment runs the outbound leg of checkout: assign the order
// number, call the gateway, and mark the booking PROCESSING only once a
// payment URL is in hand. On any failure the booking ends up back in PENDING
// and the gateway's message is surfaced to the caller.
func InitiateGatewayPayment(ctx context.Context, booking *models.Booking, clientIP string) (string, error) {
	orderNo, err := AssignOrderNo(booking.ID)
	if err != nil {
		return "", err
	}
	lib.CacheOrderBooking(orderNo, booking.ID)

	gw := lib.GetGatewayClient()
	callCtx, cancel := context.WithTimeout(ctx, gw.Config.Timeout)
	defer cancel()
	fields := gw.BuildPaymentFields(
		orderNo,
		fmt.Sprintf("%d", booking.CustomerID),
		booking.CustomerEmailSnapshot,
		phoneForBooking(booking),
		booking.EventTitleSnapshot,
		clientIP,
		booking.TotalAmount,
	)
	res, err := gw.InitiatePayment(callCtx, fields)
	if err != nil {
		if rbErr := RollbackProcessing(booking.ID); rbErr != nil {
			log.Printf("Error returning booking %d to pending: %s\n", booking.ID, rbErr.Error())
		}
		return "", err
	}
	if err := MarkProcessing(booking.ID); err != nil {
		log.Printf("Error marking booking %d as processing: %s\n", booking.ID, err.Error())
		return "", err
	}
	return res.PaymentUrl, nil
}

func phoneForBooking(booking *models.Booking) string {
	if booking.Customer != nil {
		return booking.Customer.Phone
	}
	return ""
}

// ResolveIntakeEvent finds or creates the region/venue/event/seat-type rows an
// external booking refers to. Missing references degrade to deterministic
// fallback entities named after the caller's reference, so intake never fails
// purely for lack of a referenced row.
func ResolveIntakeEvent(tx *gorm.DB, req *types.ExternalBookingRequestBody) (*models.Event, *models.Venue, *models.Region, error) {
	regionName := strings.TrimSpace(req.RegionName)
	if regionName == "" {
		regionName = "external-region"
	}
	var region models.Region
	if err := tx.Where(&models.Region{Name: regionName}).FirstOrCreate(&region, models.Region{Name: regionName}).Error; err != nil {
		return nil, nil, nil, err
	}

	var venue models.Venue
	if req.VenueID > 0 {
		if err := tx.Where("id = ?", req.VenueID).First(&venue).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, err
		}
	}
	if venue.ID == 0 {
		venueName := strings.TrimSpace(req.VenueName)
		if venueName == "" {
			venueName = fmt.Sprintf("venue-%s", slug.Make(req.BookingID))
		}
		if err := tx.
			Where(&models.Venue{Name: venueName, RegionID: region.ID}).
			FirstOrCreate(&venue, models.Venue{Name: venueName, RegionID: region.ID}).
			Error; err != nil {
			return nil, nil, nil, err
		}
	}

	var event models.Event
	if req.EventID > 0 {
		if err := tx.Where("id = ?", req.EventID).First(&event).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, err
		}
	}
	if event.ID == 0 {
		title := strings.TrimSpace(req.EventTitle)
		if title == "" {
			title = fmt.Sprintf("event-%s", slug.Make(req.BookingID))
		}
		var eventDate *time.Time
		if req.EventDate != "" {
			if parsed, err := time.Parse(config.TIME_PARSE_FORMAT, req.EventDate); err == nil {
				eventDate = &parsed
			} else if parsed, err := time.Parse("2006-01-02", req.EventDate); err == nil {
				eventDate = &parsed
			} else {
				log.Printf("Could not parse event date %q: keeping it empty\n", req.EventDate)
			}
		}
		if err := tx.
			Where(&models.Event{Title: title, VenueID: venue.ID}).
			FirstOrCreate(&event, models.Event{
				Title:    title,
				VenueID:  venue.ID,
				DateTime: eventDate,
				Status:   types.EVENT_PUBLISHED,
			}).
			Error; err != nil {
			return nil, nil, nil, err
		}
	}

	for _, item := range req.Seats {
		var seat models.EventTicket
		if err := tx.
			Where(&models.EventTicket{EventID: event.ID, SeatType: item.SeatType}).
			FirstOrCreate(&seat, models.EventTicket{
				EventID:  event.ID,
				SeatType: item.SeatType,
				Price:    item.PricePaid,
				Capacity: DefaultSeatCapacity,
			}).
			Error; err != nil {
			return nil, nil, nil, err
		}
	}
	return &event, &venue, &region, nil
}

// SweepStaleProcessing logs bookings stuck in PROCESSING longer than the
// gateway timeout window. Operator visibility only; terminal authority stays
// with the webhook, so nothing is mutated here.
func SweepStaleProcessing() {
	cutoff := time.Now().Add(-2 * lib.GetGatewayClient().Config.Timeout)
	d := db.GetDb()
	var stale []models.Booking
	err := d.
		Model(&models.Booking{}).
		Where("payment_status = ? AND updated_at < ?", types.PAYMENT_PROCESSING, cutoff).
		Limit(100).
		Find(&stale).
		Error
	if err != nil {
		log.Printf("Error sweeping stale bookings: %s\n", err.Error())
		return
	}
	for _, b := range stale {
		orderNo := ""
		if b.PaymentOrderNo != nil {
			orderNo = *b.PaymentOrderNo
		}
		log.Printf("[StaleProcessing] booking=%d order=%s updated_at=%s\n", b.ID, orderNo, b.UpdatedAt.Format(time.RFC3339))
	}
}
