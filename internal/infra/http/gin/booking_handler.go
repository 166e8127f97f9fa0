package ginserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentride/internal/app/commands"
	"rentride/internal/app/dto"
	handlers "rentride/internal/app/handlers/booking"
	"rentride/internal/app/policies"
	"rentride/internal/app/session"
	domainbooking "rentride/internal/domain/booking"
)

type BookingHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

func (h BookingHandler) Quote(c *gin.Context) {
	edit, ok := h.bindEdit(c)
	if !ok {
		return
	}
	cmd := handlers.QuoteBookingEditCommand{
		SessionID: session.ID(c.Param("id")),
		BookingID: domainbooking.ID(c.Param("bookingId")),
		Edit:      edit,
	}
	result, err := commands.Dispatch[handlers.QuoteBookingEditCommand, handlers.EditQuote](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.QuoteResult{
		Preview: dto.FromDomain(result.Preview),
		Quote:   dto.QuoteFromDomain(result.Breakdown),
	})
}

func (h BookingHandler) Edit(c *gin.Context) {
	edit, ok := h.bindEdit(c)
	if !ok {
		return
	}
	cmd := handlers.EditBookingCommand{
		SessionID: session.ID(c.Param("id")),
		BookingID: domainbooking.ID(c.Param("bookingId")),
		Edit:      edit,
	}
	result, err := commands.Dispatch[handlers.EditBookingCommand, handlers.EditBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.EditResult{
		Booking: dto.FromDomain(result.Booking),
		Bucket:  string(result.Bucket),
		Quote:   dto.QuoteFromDomain(result.Quote),
	})
}

func (h BookingHandler) Cancel(c *gin.Context) {
	cmd := handlers.CancelBookingCommand{
		SessionID: session.ID(c.Param("id")),
		BookingID: domainbooking.ID(c.Param("bookingId")),
	}
	result, err := commands.Dispatch[handlers.CancelBookingCommand, handlers.CancelBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"bookingId": string(result.BookingID), "requested": result.Requested})
}

type paymentRequest struct {
	ReturnURL string `json:"returnUrl"`
}

func (h BookingHandler) Pay(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := handlers.InitiatePaymentCommand{
		SessionID:       session.ID(c.Param("id")),
		BookingID:       domainbooking.ID(c.Param("bookingId")),
		ReturnURL:       req.ReturnURL,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[handlers.InitiatePaymentCommand, handlers.PaymentResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) VerifyPayment(c *gin.Context) {
	cmd := handlers.VerifyPaymentCommand{Reference: c.Param("ref")}
	result, err := commands.Dispatch[handlers.VerifyPaymentCommand, policies.PaymentVerification](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) bindEdit(c *gin.Context) (policies.Edit, bool) {
	var req dto.BookingEdit
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return policies.Edit{}, false
	}
	edit, err := req.ToEdit()
	if err != nil {
		respondWithError(c, h.Logger, err)
		return policies.Edit{}, false
	}
	return edit, true
}

var _ BookingHTTP = BookingHandler{}
