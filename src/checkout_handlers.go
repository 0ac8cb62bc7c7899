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

func checkoutHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.POST("/checkout", func(ctx *gin.Context) {
		var body types.CreateCheckoutRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d := db.GetDb()
		var booking models.Booking
		err := d.Transaction(func(tx *gorm.DB) error {
			var event models.Event
			if err := tx.
				Preload("Venue").
				Preload("Venue.Region").
				Where("id = ?", body.EventID).
				First(&event).
				Error; err != nil {
				return err
			}
			customer := models.Customer{
				Name:  body.Customer.Name,
				Email: body.Customer.Email,
				Phone: body.Customer.Phone,
			}
			if err := tx.Create(&customer).Error; err != nil {
				return err
			}
			items := make(types.BookingItems, 0, len(body.Items))
			for _, item := range body.Items {
				cost := item.PricePaid
				var seat models.EventTicket
				if err := tx.
					Where("event_id = ? AND seat_type = ?", event.ID, item.SeatType).
					First(&seat).
					Error; err == nil {
					cost = seat.Price
				}
				items = append(items, types.BookingItem{
					SeatType:      item.SeatType,
					Quantity:      item.Quantity,
					PricePaid:     item.PricePaid,
					CostAtBooking: cost,
				})
			}
			booking = models.Booking{
				PaymentStatus:         types.PAYMENT_PENDING,
				TotalAmount:           body.Amount,
				CustomerID:            customer.ID,
				EventID:               event.ID,
				CustomerNameSnapshot:  customer.Name,
				CustomerEmailSnapshot: customer.Email,
				EventTitleSnapshot:    event.Title,
				EventDateSnapshot:     event.DateTime,
				VenueNameSnapshot:     event.Venue.Name,
				RegionNameSnapshot:    event.Venue.Region.Name,
				BookingItems:          items,
			}
			return tx.Create(&booking).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "event not found"})
				return
			}
			log.Printf("Error creating booking: %s\n", err.Error())
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not create booking"})
			return
		}

		paymentUrl, err := utils.InitiateGatewayPayment(ctx.Request.Context(), &booking, ctx.ClientIP())
		if err != nil {
			log.Printf("Payment initiation failed for booking %d: %s\n", booking.ID, err.Error())
			var gwErr *lib.GatewayError
			if errors.As(err, &gwErr) {
				ctx.JSON(http.StatusBadGateway, gin.H{"error": gwErr.Message, "code": gwErr.Code, "booking_id": booking.ID})
				return
			}
			ctx.JSON(http.StatusBadGateway, gin.H{"error": "payment initiation failed, please retry", "booking_id": booking.ID})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"booking_id": booking.ID, "payment_url": paymentUrl})
	})
	return g
}
