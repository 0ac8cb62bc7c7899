package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"tbs/src/db"
	"tbs/src/lib"
	"tbs/src/lib/mailer"
	"tbs/src/models"
	"tbs/src/types"
	"tbs/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// notifyPaymentConfirmed is the payment-confirmation collaborator; swapped out
// in tests to record invocations.
var notifyPaymentConfirmed = func(booking *models.Booking) error {
	return mailer.NewMailerMessage(&lib.SendMailInput{
		From:     os.Getenv("MAIL_FROM"),
		FromName: os.Getenv("MAIL_FROM_NAME"),
		To:       []string{booking.CustomerEmailSnapshot},
		Subject:  fmt.Sprintf("Payment confirmed for %s", booking.EventTitleSnapshot),
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour payment for %s at %s has been confirmed. Your booking reference is %d.\n",
			booking.CustomerNameSnapshot,
			booking.EventTitleSnapshot,
			booking.VenueNameSnapshot,
			booking.ID,
		),
	})
}

func paymentCallbackRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)

	// Browser redirect back from the gateway. The status written here is
	// advisory UX only; the webhook below is authoritative, and the
	// terminal-state guard keeps this write from ever overriding it. The
	// user always lands on the confirmation page, even on internal errors.
	apiv1.GET("/payment/return", func(ctx *gin.Context) {
		var q types.PaymentReturnQuery
		if err := ctx.ShouldBindQuery(&q); err != nil {
			redirectToConfirmation(ctx, 0, "error", "we couldn't confirm your payment, check back shortly")
			return
		}
		var booking *models.Booking
		var err error
		if q.OrderNo != "" {
			booking, err = utils.FindBookingByOrderNo(q.OrderNo)
		} else {
			err = utils.ErrUnknownOrder
		}
		if err != nil {
			log.Printf("[Redirect] could not resolve order %q: %s\n", q.OrderNo, err.Error())
			redirectToConfirmation(ctx, q.BookingID, "error", "we couldn't confirm your payment, check back shortly")
			return
		}

		outcome := utils.OutcomeForNotification(q.Status, q.Code)
		gw := lib.GetGatewayClient()
		if gw.Config.RedirectWrites {
			d := db.GetDb()
			err := d.Transaction(func(tx *gorm.DB) error {
				_, err := utils.ApplyGatewayOutcome(tx, booking.ID, outcome, q.TransactionId, q.Amount)
				return err
			})
			if err != nil {
				log.Printf("[Redirect] advisory write failed for booking %d: %s\n", booking.ID, err.Error())
				redirectToConfirmation(ctx, booking.ID, "error", "we couldn't confirm your payment, check back shortly")
				return
			}
		}

		// The persisted state decides what the user sees, so a replayed or
		// fabricated redirect after the webhook landed shows the real outcome.
		var current models.Booking
		d := db.GetDb()
		if err := d.Model(&models.Booking{}).Where("id = ?", booking.ID).First(&current).Error; err != nil {
			log.Printf("[Redirect] could not reload booking %d: %s\n", booking.ID, err.Error())
			redirectToConfirmation(ctx, booking.ID, "error", "we couldn't confirm your payment, check back shortly")
			return
		}
		switch current.PaymentStatus {
		case types.PAYMENT_COMPLETED:
			redirectToConfirmation(ctx, booking.ID, "success", "")
		case types.PAYMENT_FAILED, types.PAYMENT_CANCELED:
			redirectToConfirmation(ctx, booking.ID, "failed", q.Message)
		default:
			redirectToConfirmation(ctx, booking.ID, "error", "we couldn't confirm your payment, check back shortly")
		}
	})

	// Server-to-server notification, the system of record. A fresh completed
	// transition issues tickets and informs the mail collaborator exactly
	// once; duplicate deliveries ack as success without side effects.
	apiv1.POST("/webhook/payment", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		note, ok := parseWebhookPayload(payload)
		if !ok || note.OrderNo == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing order number"})
			return
		}

		booking, err := utils.FindBookingByOrderNo(note.OrderNo)
		if err != nil {
			if errors.Is(err, utils.ErrUnknownOrder) {
				// Ack so the gateway stops retrying data we can never
				// resolve; the distinct log line is the operator's cue.
				log.Printf("[Reconcile] webhook for unknown order %q ignored\n", note.OrderNo)
				ctx.JSON(http.StatusOK, gin.H{"status": "ignored"})
				return
			}
			log.Printf("[Reconcile] error resolving order %q: %s\n", note.OrderNo, err.Error())
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not process notification"})
			return
		}

		outcome := utils.OutcomeForNotification(note.Status, note.Code)
		fresh := false
		d := db.GetDb()
		err = d.Transaction(func(tx *gorm.DB) error {
			f, err := utils.ApplyGatewayOutcome(tx, booking.ID, outcome, note.TransactionId, note.Amount)
			if err != nil {
				return err
			}
			fresh = f
			if fresh && outcome == types.PAYMENT_COMPLETED {
				return utils.IssueTickets(tx, booking)
			}
			return nil
		})
		if err != nil {
			log.Printf("[Reconcile] error applying outcome for booking %d: %s\n", booking.ID, err.Error())
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not process notification"})
			return
		}

		if fresh && outcome == types.PAYMENT_COMPLETED {
			if err := notifyPaymentConfirmed(booking); err != nil {
				log.Printf("Error notifying customer for booking %d: %s\n", booking.ID, err.Error())
			}
			lib.PublishPaymentEvent("webhook", booking.ID, note.OrderNo, string(outcome))
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "fresh": fresh})
	})

	return apiv1
}

type webhookNotification struct {
	OrderNo       string
	Status        string
	Code          int
	Message       string
	TransactionId string
	Amount        float64
}

// parseWebhookPayload accepts either a JSON or a form-encoded notification
// body and normalizes the key variants the gateway is known to send.
func parseWebhookPayload(payload []byte) (*webhookNotification, bool) {
	note := &webhookNotification{}
	if gjson.ValidBytes(payload) {
		body := gjson.ParseBytes(payload)
		pick := func(keys ...string) gjson.Result {
			for _, k := range keys {
				if v := body.Get(k); v.Exists() {
					return v
				}
			}
			return gjson.Result{}
		}
		note.OrderNo = pick("OrderNo", "orderNo").String()
		note.Status = pick("Status", "status").String()
		note.Code = int(pick("Code", "code").Int())
		note.Message = pick("Message", "message").String()
		note.TransactionId = pick("TransactionId", "transactionId").String()
		note.Amount = pick("Amount", "amount").Float()
		return note, true
	}
	form, err := url.ParseQuery(strings.TrimSpace(string(payload)))
	if err != nil {
		return nil, false
	}
	pick := func(keys ...string) string {
		for _, k := range keys {
			if v := form.Get(k); v != "" {
				return v
			}
		}
		return ""
	}
	note.OrderNo = pick("OrderNo", "orderNo")
	note.Status = pick("Status", "status")
	note.Message = pick("Message", "message")
	note.TransactionId = pick("TransactionId", "transactionId")
	fmt.Sscanf(pick("Code", "code"), "%d", &note.Code)
	fmt.Sscanf(pick("Amount", "amount"), "%f", &note.Amount)
	return note, true
}

func redirectToConfirmation(ctx *gin.Context, bookingID uint, status string, message string) {
	q := url.Values{}
	if bookingID > 0 {
		q.Set("bookingId", fmt.Sprintf("%d", bookingID))
	}
	q.Set("status", status)
	if message != "" {
		q.Set("message", message)
	}
	target := fmt.Sprintf("%s/payment/confirmation?%s", os.Getenv("APP_HOST"), q.Encode())
	ctx.Redirect(http.StatusFound, target)
}
