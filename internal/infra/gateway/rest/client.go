package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"rentride/internal/app/dto"
	"rentride/internal/app/policies"
	"rentride/internal/domain/booking"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrBaseURLRequired = errors.New("rest: base url not configured")

// Client is the HTTP implementation of policies.BookingGateway.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	// Token is sent as a bearer token when set.
	Token  string
	Logger *slog.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Logger:  logger,
	}
}

type bookingCollection struct {
	Items []dto.BookingRecord `json:"items"`
}

type paymentRequest struct {
	BookingID   string `json:"bookingId"`
	AmountMinor int64  `json:"amountMinor"`
	ReturnURL   string `json:"returnUrl"`
}

type paymentResponse struct {
	PaymentURL string `json:"paymentUrl"`
	Reference  string `json:"reference"`
}

type verificationResponse struct {
	Reference string `json:"reference"`
	BookingID string `json:"bookingId"`
	Status    string `json:"status"`
}

func (c *Client) FetchBookings(ctx context.Context, scope policies.Scope) ([]booking.Record, error) {
	const op = "fetch bookings"
	var body bookingCollection
	path := "/bookings?scope=" + url.QueryEscape(string(scope))
	if err := c.do(ctx, op, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	records, err := dto.ToDomainList(body.Items)
	if err != nil {
		c.logError("bookings response rejected", op, err)
		return nil, &policies.TransportError{Op: op, Err: err}
	}
	return records, nil
}

func (c *Client) SaveBookingEdit(ctx context.Context, id booking.ID, edit policies.Edit) (booking.Record, error) {
	const op = "save booking"
	var body dto.BookingRecord
	if err := c.do(ctx, op, http.MethodPatch, "/bookings/"+url.PathEscape(string(id)), dto.EditFromDomain(edit), &body); err != nil {
		return booking.Record{}, err
	}
	r, err := body.ToDomain()
	if err != nil {
		return booking.Record{}, &policies.TransportError{Op: op, Err: err}
	}
	return r, nil
}

func (c *Client) CancelBooking(ctx context.Context, id booking.ID) error {
	return c.do(ctx, "cancel booking", http.MethodPost, "/bookings/"+url.PathEscape(string(id))+"/cancel", nil, nil)
}

func (c *Client) InitiatePayment(ctx context.Context, bookingID booking.ID, amountMinor int64, returnURL string) (policies.PaymentInit, error) {
	var body paymentResponse
	req := paymentRequest{BookingID: string(bookingID), AmountMinor: amountMinor, ReturnURL: returnURL}
	if err := c.do(ctx, "initiate payment", http.MethodPost, "/payments", req, &body); err != nil {
		return policies.PaymentInit{}, err
	}
	if body.PaymentURL == "" {
		return policies.PaymentInit{}, &policies.TransportError{Op: "initiate payment", Err: errors.New("empty payment url")}
	}
	return policies.PaymentInit{PaymentURL: body.PaymentURL, Reference: body.Reference}, nil
}

func (c *Client) VerifyPayment(ctx context.Context, reference string) (policies.PaymentVerification, error) {
	var body verificationResponse
	if err := c.do(ctx, "verify payment", http.MethodGet, "/payments/"+url.PathEscape(reference)+"/verify", nil, &body); err != nil {
		return policies.PaymentVerification{}, err
	}
	return policies.PaymentVerification{
		Reference: body.Reference,
		BookingID: booking.ID(body.BookingID),
		Status:    booking.PaymentStatus(body.Status),
	}, nil
}

// do performs one JSON round trip. Every failure comes back as a
// *policies.TransportError.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if c == nil || c.BaseURL == "" {
		return &policies.TransportError{Op: op, Err: ErrBaseURLRequired}
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &policies.TransportError{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}
	request, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return &policies.TransportError{Op: op, Err: err}
	}
	request.Header.Set("Accept", "application/json")
	if in != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		request.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := client.Do(request)
	if err != nil {
		c.logError("booking api request failed", op, err)
		return &policies.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := &policies.TransportError{Op: op, StatusCode: resp.StatusCode}
		if msg := strings.TrimSpace(string(snippet)); msg != "" {
			err.Err = errors.New(msg)
		}
		c.logError("booking api returned error", op, err)
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logError("booking api decode failed", op, err)
		return &policies.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func (c *Client) logError(msg, op string, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.Error(msg, "op", op, "error", err)
}

var _ policies.BookingGateway = (*Client)(nil)
