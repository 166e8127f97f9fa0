package booking

import (
	"rentride/internal/app/commands"
	"rentride/internal/app/policies"
	"rentride/internal/domain/pricing"
)

type Deps struct {
	Sessions  SessionLookup
	Gateway   policies.BookingGateway
	Pricing   pricing.Engine
	Currency  string
	Exponent  int32
	ReturnURL string
}

// Register wires every booking command onto bus.
func Register(bus *commands.InMemoryBus, deps Deps) {
	commands.RegisterHandler[QuoteBookingEditCommand, EditQuote](bus, quoteEditKey,
		NewQuoteBookingEditHandler(deps.Sessions, deps.Pricing))
	commands.RegisterHandler[EditBookingCommand, EditBookingResult](bus, editKey,
		NewEditBookingHandler(deps.Sessions, deps.Gateway, deps.Pricing))
	commands.RegisterHandler[CancelBookingCommand, CancelBookingResult](bus, cancelKey,
		&CancelBookingHandler{Sessions: deps.Sessions, Gateway: deps.Gateway})
	commands.RegisterHandler[InitiatePaymentCommand, PaymentResult](bus, initiatePaymentKey,
		&InitiatePaymentHandler{
			Sessions:  deps.Sessions,
			Gateway:   deps.Gateway,
			Currency:  deps.Currency,
			Exponent:  deps.Exponent,
			ReturnURL: deps.ReturnURL,
		})
	commands.RegisterHandler[VerifyPaymentCommand, policies.PaymentVerification](bus, verifyPaymentKey,
		&VerifyPaymentHandler{Gateway: deps.Gateway})
}
