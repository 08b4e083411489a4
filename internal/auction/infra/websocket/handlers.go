package websocket

import (
	"context"
	"encoding/json"

	"github.com/bidhaus/auction-engine/internal/auction/application"
	"github.com/bidhaus/auction-engine/internal/shared/logger"
	"github.com/bidhaus/auction-engine/internal/shared/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionWSHandler consumes inbound hub messages for the auction module:
// bids arriving over the socket, and state fan-out after each accepted bid.
type AuctionWSHandler struct {
	service application.AuctionService
	hub     *websocket.Hub
}

func NewAuctionWSHandler(service application.AuctionService, hub *websocket.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{service: service, hub: hub}
}

// ListenForMessages drains the hub's inbound channel until ctx is cancelled.
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("auction websocket handler listening")
	for {
		select {
		case <-ctx.Done():
			log.Info("auction websocket handler stopped")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

func (h *AuctionWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorToClient(client, "invalid message format")
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientBid:
		h.handleClientBid(ctx, client, data)
	default:
		h.sendErrorToClient(client, "unknown message type")
	}
}

func (h *AuctionWSHandler) handleClientBid(ctx context.Context, client *websocket.Client, data []byte) {
	var bidMsg ClientBidMessage
	if err := json.Unmarshal(data, &bidMsg); err != nil {
		h.sendErrorToClient(client, "invalid bid message format")
		return
	}

	if bidMsg.Payload.AuctionID.String() != client.AuctionID {
		h.sendErrorToClient(client, "auction id mismatch")
		return
	}

	cmd := application.PlaceBidDTO{
		AuctionID:        bidMsg.Payload.AuctionID,
		BidderID:         bidMsg.Payload.BidderID,
		Amount:           bidMsg.Payload.Amount,
		PaymentMethodRef: bidMsg.Payload.PaymentMethodRef,
	}
	if _, err := h.service.PlaceBid(ctx, cmd); err != nil {
		h.sendErrorToClient(client, err.Error())
		return
	}

	h.BroadcastState(ctx, client.AuctionID)
}

// BroadcastState pushes the current auction state to every watcher.
func (h *AuctionWSHandler) BroadcastState(ctx context.Context, auctionID string) {
	state, err := h.stateFor(ctx, auctionID)
	if err != nil {
		log.Warn("failed to load auction state for broadcast",
			zap.String("auctionID", auctionID),
			zap.Error(err),
		)
		return
	}

	updateMsg := ServerStateUpdateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerStateUpdate},
		Payload:     *state,
	}
	data, err := json.Marshal(updateMsg)
	if err != nil {
		log.Error("failed to marshal state update", zap.Error(err))
		return
	}
	h.hub.BroadcastToAuction(auctionID, data)
}

// SendInitialState delivers the auction snapshot to a newly connected client.
func (h *AuctionWSHandler) SendInitialState(ctx context.Context, client *websocket.Client) {
	state, err := h.stateFor(ctx, client.AuctionID)
	if err != nil {
		h.sendErrorToClient(client, "auction not found")
		return
	}

	initMsg := ServerInitialStateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerInitialState},
		Payload:     *state,
	}
	data, err := json.Marshal(initMsg)
	if err != nil {
		log.Error("failed to marshal initial state", zap.Error(err))
		return
	}
	select {
	case client.Send <- data:
	default:
		log.Warn("client send channel full, initial state dropped",
			zap.String("clientID", client.ID),
		)
	}
}

func (h *AuctionWSHandler) stateFor(ctx context.Context, auctionID string) (*application.AuctionStateDTO, error) {
	id, err := uuid.Parse(auctionID)
	if err != nil {
		return nil, err
	}
	return h.service.GetAuctionState(ctx, id)
}

func (h *AuctionWSHandler) sendErrorToClient(client *websocket.Client, errorMessage string) {
	errMsg := ServerErrorMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerError},
	}
	errMsg.Payload.Error = errorMessage
	data, err := json.Marshal(errMsg)
	if err != nil {
		log.Error("failed to marshal error message", zap.Error(err))
		return
	}
	select {
	case client.Send <- data:
	default:
		log.Warn("client send channel full, error message dropped",
			zap.String("clientID", client.ID),
		)
	}
}
