package httpapi

import (
	"errors"
	"time"

	"github.com/bidhaus/auction-engine/internal/auction/application"
	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionHandler exposes the auction engine over HTTP.
type AuctionHandler struct {
	service application.AuctionService
}

func NewAuctionHandler(service application.AuctionService) *AuctionHandler {
	return &AuctionHandler{service: service}
}

// Register mounts every route on the app.
func (h *AuctionHandler) Register(app *fiber.App) {
	app.Post("/auctions", h.createAuction)
	app.Get("/auctions/:id", h.getAuction)
	app.Post("/auctions/:id/bids", h.placeBid)
	app.Get("/auctions/:id/bids", h.listBids)
	app.Get("/auctions/:id/win", h.getWin)
	app.Post("/auctions/:id/cancel", h.cancelAuction)
	app.Get("/users/:id/wins", h.listUserWins)

	admin := app.Group("/admin/auctions")
	admin.Get("/stats", h.statusStats)
	admin.Post("/sweep", h.runSweep)
}

type createAuctionRequest struct {
	SubjectKind  string           `json:"subject_kind"`
	SubjectID    string           `json:"subject_id"`
	VendorID     uuid.UUID        `json:"vendor_id"`
	StartingBid  decimal.Decimal  `json:"starting_bid"`
	ReservePrice *decimal.Decimal `json:"reserve_price,omitempty"`
	StartsAt     time.Time        `json:"starts_at"`
	EndsAt       time.Time        `json:"ends_at"`
}

func (h *AuctionHandler) createAuction(c *fiber.Ctx) error {
	var req createAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	state, err := h.service.CreateAuction(c.Context(), application.CreateAuctionDTO{
		SubjectKind:  req.SubjectKind,
		SubjectID:    req.SubjectID,
		VendorID:     req.VendorID,
		StartingBid:  req.StartingBid,
		ReservePrice: req.ReservePrice,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(state)
}

type placeBidRequest struct {
	BidderID         uuid.UUID       `json:"bidder_id"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethodRef *string         `json:"payment_method_ref,omitempty"`
}

func (h *AuctionHandler) placeBid(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid auction id")
	}
	var req placeBidRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	receipt, err := h.service.PlaceBid(c.Context(), application.PlaceBidDTO{
		AuctionID:        auctionID,
		BidderID:         req.BidderID,
		Amount:           req.Amount,
		PaymentMethodRef: req.PaymentMethodRef,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			// Give the bidder the refreshed price so they can resubmit.
			if state, stateErr := h.service.GetAuctionState(c.Context(), auctionID); stateErr == nil {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error":        "another bid was accepted first, retry with a higher amount",
					"retryable":    true,
					"current_bid":  state.CurrentBid,
					"min_next_bid": state.MinNextBid,
				})
			}
		}
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(receipt)
}

func (h *AuctionHandler) getAuction(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid auction id")
	}
	state, err := h.service.GetAuctionState(c.Context(), auctionID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(state)
}

func (h *AuctionHandler) listBids(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid auction id")
	}
	bids, err := h.service.ListBids(c.Context(), auctionID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(bids)
}

func (h *AuctionHandler) getWin(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid auction id")
	}
	win, err := h.service.GetWin(c.Context(), auctionID)
	if err != nil {
		return writeDomainError(c, err)
	}
	if win == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "auction has not been settled with a winner",
		})
	}
	return c.JSON(win)
}

func (h *AuctionHandler) cancelAuction(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid auction id")
	}
	if err := h.service.CancelAuction(c.Context(), auctionID); err != nil {
		return writeDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuctionHandler) listUserWins(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	wins, err := h.service.ListWinsByUser(c.Context(), userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(wins)
}

func (h *AuctionHandler) statusStats(c *fiber.Ctx) error {
	stats, err := h.service.GetStatusStats(c.Context())
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(stats)
}

func (h *AuctionHandler) runSweep(c *fiber.Ctx) error {
	result, err := h.service.RunStatusSweep(c.Context())
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(result)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// writeDomainError maps domain sentinels to HTTP status codes.
func writeDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrAuctionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": domain.ErrAuctionNotFound.Error()})
	case errors.Is(err, domain.ErrInvalidState):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": domain.ErrInvalidState.Error()})
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": domain.ErrConcurrencyConflict.Error(), "retryable": true})
	case errors.Is(err, domain.ErrBidTooLow),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidSubject),
		errors.Is(err, domain.ErrInvalidSchedule):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
