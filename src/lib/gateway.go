package lib

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"tbs/src/config"

	"github.com/google/uuid"
)

// OrderNoMaxLen is the gateway's maximum length for the merchant order
// reference field.
const OrderNoMaxLen = 32

// PaymentFields is the canonical field set of a payment-initiation request.
// The checksum is computed over these values in a fixed order; unused optional
// fields stay empty strings and still take part in the concatenation.
type PaymentFields struct {
	MerchantCode    string
	OrderNo         string
	CustomerID      string
	Amount          string
	Phone           string
	Description     string
	ChannelCode     string
	Currency        string
	LanguageCode    string
	RouteNo         string
	ClientIP        string
	APIKey          string
	TokenFlag       string
	CreditToken     string
	CreditMonth     string
	ShopID          string
	ProductImageURL string
	Email           string
	CardType        string
}

type PaymentInitResponse struct {
	Status        int     `json:"Status"`
	Code          int     `json:"Code"`
	Message       string  `json:"Message"`
	PaymentUrl    string  `json:"PaymentUrl,omitempty"`
	TransactionId string  `json:"TransactionId,omitempty"`
	Amount        float64 `json:"Amount,omitempty"`
	OrderNo       string  `json:"OrderNo,omitempty"`
}

func (r *PaymentInitResponse) Success() bool {
	return r.Status == 1 && r.Code == 200
}

// GatewayError carries the gateway's business failure back to the caller
// verbatim where available.
type GatewayError struct {
	Code    int
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error [%d]: %s", e.Code, e.Message)
}

type GatewayClient struct {
	Config config.GatewayConfig
	http   *http.Client
}

var gatewayClient *GatewayClient

func GetGatewayClient() *GatewayClient {
	if gatewayClient != nil {
		return gatewayClient
	}
	cfg := config.GetGatewayConfig()
	gatewayClient = &GatewayClient{
		Config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
	}
	return gatewayClient
}

// NewGatewayClient replaces the gateway client, for tests.
func NewGatewayClient(cfg config.GatewayConfig) *GatewayClient {
	gatewayClient = &GatewayClient{
		Config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
	}
	return gatewayClient
}

// MinorUnits converts a decimal amount to the gateway's minor-unit integer.
// Rounding is half-up: 99.999 becomes 10000.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// GenerateOrderNo derives the merchant order reference from the booking id
// plus a collision-avoiding suffix, capped to the gateway field length.
func GenerateOrderNo(bookingID uint) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")
	orderNo := fmt.Sprintf("TB%d-%s", bookingID, suffix)
	if len(orderNo) > OrderNoMaxLen {
		orderNo = orderNo[:OrderNoMaxLen]
	}
	return orderNo
}

// Checksum concatenates the field values in the gateway's fixed order, with no
// separators, appends the shared secret and returns the hex MD5 digest. The
// order must never change; the gateway rejects a reordered digest without a
// useful client-side error.
func Checksum(f PaymentFields, sharedSecret string) string {
	var b strings.Builder
	for _, v := range []string{
		f.MerchantCode,
		f.OrderNo,
		f.CustomerID,
		f.Amount,
		f.Phone,
		f.Description,
		f.ChannelCode,
		f.Currency,
		f.LanguageCode,
		f.RouteNo,
		f.ClientIP,
		f.APIKey,
		f.TokenFlag,
		f.CreditToken,
		f.CreditMonth,
		f.ShopID,
		f.ProductImageURL,
		f.Email,
		f.CardType,
		sharedSecret,
	} {
		b.WriteString(v)
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// BuildPaymentFields fills the constant and credential slots from the client
// config around the per-booking values.
func (c *GatewayClient) BuildPaymentFields(orderNo, customerID, email, phone, description, clientIP string, amount float64) PaymentFields {
	return PaymentFields{
		MerchantCode: c.Config.MerchantCode,
		OrderNo:      orderNo,
		CustomerID:   customerID,
		Amount:       fmt.Sprintf("%d", MinorUnits(amount)),
		Phone:        phone,
		Description:  description,
		ChannelCode:  c.Config.ChannelCode,
		Currency:     c.Config.CurrencyCode,
		LanguageCode: c.Config.LanguageCode,
		RouteNo:      c.Config.RouteNo,
		ClientIP:     clientIP,
		APIKey:       c.Config.APIKey,
		ShopID:       c.Config.ShopID,
		Email:        email,
	}
}

// InitiatePayment posts the form-encoded initiation request, checksum field
// last, and decodes the gateway's JSON reply. Any transport error, non-2xx,
// unparsable body or business failure comes back as an error; the caller is
// responsible for keeping the booking out of PROCESSING in that case.
func (c *GatewayClient) InitiatePayment(ctx context.Context, f PaymentFields) (*PaymentInitResponse, error) {
	form := url.Values{}
	form.Set("MerchantCode", f.MerchantCode)
	form.Set("OrderNo", f.OrderNo)
	form.Set("CustomerId", f.CustomerID)
	form.Set("Amount", f.Amount)
	form.Set("Phone", f.Phone)
	form.Set("Description", f.Description)
	form.Set("ChannelCode", f.ChannelCode)
	form.Set("Currency", f.Currency)
	form.Set("Lang", f.LanguageCode)
	form.Set("Route", f.RouteNo)
	form.Set("ClientIp", f.ClientIP)
	form.Set("ApiKey", f.APIKey)
	form.Set("TokenFlag", f.TokenFlag)
	form.Set("CreditToken", f.CreditToken)
	form.Set("CreditMonth", f.CreditMonth)
	form.Set("ShopId", f.ShopID)
	form.Set("ProductImageUrl", f.ProductImageURL)
	form.Set("Email", f.Email)
	form.Set("CardType", f.CardType)
	form.Set("ReturnUrl", c.Config.ReturnURL)
	form.Set("NotifyUrl", c.Config.NotifyURL)
	form.Set("Checksum", Checksum(f, c.Config.SharedSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Config.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		log.Printf("[Gateway] Error calling payment endpoint: %s\n", err.Error())
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &GatewayError{Code: res.StatusCode, Message: "unexpected gateway response status"}
	}
	var payload PaymentInitResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		log.Printf("[Gateway] Error decoding response: %s\n", err.Error())
		return nil, err
	}
	if !payload.Success() {
		return &payload, &GatewayError{Code: payload.Code, Message: payload.Message}
	}
	if payload.PaymentUrl == "" {
		return &payload, &GatewayError{Code: payload.Code, Message: "gateway returned no payment URL"}
	}
	return &payload, nil
}
