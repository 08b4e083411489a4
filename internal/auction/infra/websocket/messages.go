package websocket

import (
	"github.com/bidhaus/auction-engine/internal/auction/application"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MessageType identifies the kind of websocket frame.
type MessageType string

const (
	MessageTypeClientBid          MessageType = "client_bid"
	MessageTypeServerStateUpdate  MessageType = "server_state_update"
	MessageTypeServerError        MessageType = "server_error"
	MessageTypeServerInitialState MessageType = "server_initial_state"
)

// BaseMessage carries the discriminator for all frames.
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage is a bid submitted over the socket.
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		AuctionID        uuid.UUID       `json:"auction_id"`
		BidderID         uuid.UUID       `json:"bidder_id"`
		Amount           decimal.Decimal `json:"amount"`
		PaymentMethodRef *string         `json:"payment_method_ref,omitempty"`
	} `json:"payload"`
}

// ServerStateUpdateMessage pushes the auction state after a change.
type ServerStateUpdateMessage struct {
	BaseMessage
	Payload application.AuctionStateDTO `json:"payload"`
}

// ServerInitialStateMessage is sent to a client right after it connects.
type ServerInitialStateMessage struct {
	BaseMessage
	Payload application.AuctionStateDTO `json:"payload"`
}

// ServerErrorMessage reports a rejected frame back to its sender.
type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error string `json:"error"`
	} `json:"payload"`
}
