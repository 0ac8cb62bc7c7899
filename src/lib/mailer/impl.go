package mailer

import (
	"fmt"
	"os"
	"tbs/src/lib"
	"tbs/src/types"
)

// NewMailerMessage hands a message to the delivery collaborator. With a broker
// configured it is queued for the mail worker; otherwise it goes straight out
// over SMTP.
func NewMailerMessage(input *lib.SendMailInput) error {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	if os.Getenv("KAFKA_BROKER") != "" && emailQueue != "" {
		emailBody := types.JSONB{
			"from":      input.From,
			"from-name": input.FromName,
			"to":        input.To,
			"body":      input.Body,
			"html":      input.Html,
			"subject":   input.Subject,
		}
		if err := lib.KafkaProduceMessage("emails", emailQueue, emailBody); err != nil {
			return fmt.Errorf("error sending message to queue: %s", err.Error())
		}
		return nil
	}
	return lib.SendMail(input)
}
