package main

import (
	"errors"
	"log"
	"net/http"
	"tbs/src/db"
	"tbs/src/lib"
	"tbs/src/models"
	"tbs/src/types"
	"tbs/src/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// externalBookingRoutes is the bulk intake entry point for partner systems
// submitting bookings that do not yet exist here. Simple GET callers get a
// browser redirect to the payment page; JSON POST callers get the payment URL
// back. Referenced entities are resolved or auto-created so intake never fails
// purely for lack of a region/venue/event row.
func externalBookingRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	external := apiv1.Group("/external")
	external.
		OPTIONS("/bookings", func(ctx *gin.Context) {
			ctx.Status(http.StatusNoContent)
		}).
		GET("/bookings", func(ctx *gin.Context) {
			var q types.ExternalBookingQuery
			if err := ctx.ShouldBindQuery(&q); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			seats, err := types.ParseSeatList(q.Seats)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			body := types.ExternalBookingRequestBody{
				BookingID:    q.BookingID,
				Amount:       q.Amount,
				CustomerName: q.CustomerName,
				Email:        q.Email,
				Phone:        q.Phone,
				Seats:        seats,
				EventID:      q.EventID,
				EventTitle:   q.EventTitle,
				EventDate:    q.EventDate,
				VenueID:      q.VenueID,
				VenueName:    q.VenueName,
				RegionName:   q.RegionName,
			}
			processExternalBooking(ctx, &body, true)
		}).
		POST("/bookings", func(ctx *gin.Context) {
			var body types.ExternalBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			processExternalBooking(ctx, &body, false)
		})
	return apiv1
}

func processExternalBooking(ctx *gin.Context, req *types.ExternalBookingRequestBody, redirect bool) {
	d := db.GetDb()

	// Entity resolution and the customer row are best effort: the booking is
	// the record of truth for payment, so failures here degrade to snapshot
	// data instead of aborting the intake.
	var event *models.Event
	var venue *models.Venue
	var region *models.Region
	if err := d.Transaction(func(tx *gorm.DB) error {
		var err error
		event, venue, region, err = utils.ResolveIntakeEvent(tx, req)
		return err
	}); err != nil {
		log.Printf("[Intake] entity resolution failed for %s: %s\n", req.BookingID, err.Error())
	}

	customer := models.Customer{
		Name:  req.CustomerName,
		Email: req.Email,
		Phone: req.Phone,
	}
	if err := d.Create(&customer).Error; err != nil {
		log.Printf("[Intake] customer insert failed for %s: %s\n", req.BookingID, err.Error())
	}

	items := make(types.BookingItems, 0, len(req.Seats))
	for _, item := range req.Seats {
		cost := item.CostAtBooking
		if cost == 0 {
			cost = item.PricePaid
		}
		items = append(items, types.BookingItem{
			SeatType:      item.SeatType,
			Quantity:      item.Quantity,
			PricePaid:     item.PricePaid,
			CostAtBooking: cost,
		})
	}
	booking := models.Booking{
		PaymentStatus:         types.PAYMENT_PENDING,
		TotalAmount:           req.Amount,
		ExternalRef:           &req.BookingID,
		CustomerID:            customer.ID,
		CustomerNameSnapshot:  req.CustomerName,
		CustomerEmailSnapshot: req.Email,
		BookingItems:          items,
	}
	if event != nil {
		booking.EventID = event.ID
		booking.EventTitleSnapshot = event.Title
		booking.EventDateSnapshot = event.DateTime
	} else {
		booking.EventTitleSnapshot = req.EventTitle
	}
	if venue != nil {
		booking.VenueNameSnapshot = venue.Name
	} else {
		booking.VenueNameSnapshot = req.VenueName
	}
	if region != nil {
		booking.RegionNameSnapshot = region.Name
	}

	// The booking and its line items land in one transaction; a booking row
	// without its items must never be observable.
	if err := d.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&booking).Error
	}); err != nil {
		log.Printf("[Intake] booking insert failed for %s: %s\n", req.BookingID, err.Error())
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not create booking"})
		return
	}

	paymentUrl, err := utils.InitiateGatewayPayment(ctx.Request.Context(), &booking, ctx.ClientIP())
	if err != nil {
		log.Printf("[Intake] payment initiation failed for booking %d: %s\n", booking.ID, err.Error())
		if redirect {
			redirectToConfirmation(ctx, booking.ID, "error", "payment could not be initiated")
			return
		}
		var gwErr *lib.GatewayError
		if errors.As(err, &gwErr) {
			ctx.JSON(http.StatusBadGateway, gin.H{"error": gwErr.Message, "code": gwErr.Code, "internal_id": booking.ID})
			return
		}
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "payment initiation failed", "internal_id": booking.ID})
		return
	}

	if redirect {
		ctx.Redirect(http.StatusFound, paymentUrl)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"internal_id": booking.ID, "payment_url": paymentUrl})
}
