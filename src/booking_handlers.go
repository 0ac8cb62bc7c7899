package main

import (
	"errors"
	"log"
	"net/http"
	"tbs/src/db"
	"tbs/src/models"
	"tbs/src/types"
	"tbs/src/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			d := db.GetDb()
			var bookings []models.Booking
			q := d.Model(&models.Booking{})
			if status := ctx.Query("status"); status != "" {
				q = q.Where("payment_status = ?", status)
			}
			err := q.
				Order("created_at DESC").
				Limit(100).
				Find(&bookings).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			d := db.GetDb()
			var booking models.Booking
			if err := d.
				Model(&models.Booking{}).
				Where("id = ?", params.ID).
				Preload("Customer").
				Preload("Event").
				Preload("Tickets").
				First(&booking).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		// The one path allowed to set a status by fiat. It still refuses to
		// move a booking out of a terminal state.
		PUT("/bookings/:id/override", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.OverrideStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if !body.Status.Valid() {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
				return
			}
			d := db.GetDb()
			var booking models.Booking
			if err := d.
				Model(&models.Booking{}).
				Where("id = ?", params.ID).
				First(&booking).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			if _, fresh := utils.NextPaymentStatus(booking.PaymentStatus, body.Status); !fresh {
				ctx.JSON(http.StatusOK, gin.H{"status": booking.PaymentStatus, "changed": false})
				return
			}
			changed := false
			err := d.Transaction(func(tx *gorm.DB) error {
				f, err := utils.ApplyGatewayOutcome(tx, booking.ID, body.Status, "", 0)
				if err != nil {
					return err
				}
				changed = f
				if changed && body.Status == types.PAYMENT_COMPLETED {
					return utils.IssueTickets(tx, &booking)
				}
				return nil
			})
			if err != nil {
				log.Printf("Override failed for booking %d: %s\n", booking.ID, err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not apply override"})
				return
			}
			log.Printf("[Override] booking=%d status=%s reason=%q changed=%v\n", booking.ID, body.Status, body.Reason, changed)
			ctx.JSON(http.StatusOK, gin.H{"status": body.Status, "changed": changed})
		}).
		// Manual reconcile action: re-run issuance for a completed booking.
		// Safe to repeat, the issuer checks for existing tickets first.
		POST("/bookings/:id/reissue", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			d := db.GetDb()
			var booking models.Booking
			if err := d.
				Model(&models.Booking{}).
				Where("id = ?", params.ID).
				First(&booking).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			if booking.PaymentStatus != types.PAYMENT_COMPLETED {
				ctx.JSON(http.StatusConflict, gin.H{"error": "booking is not completed"})
				return
			}
			err := d.Transaction(func(tx *gorm.DB) error {
				return utils.IssueTickets(tx, &booking)
			})
			if err != nil {
				log.Printf("Reissue failed for booking %d: %s\n", booking.ID, err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not issue tickets"})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
