package notify

import "github.com/bidhaus/auction-engine/internal/auction/domain"

const (
	TopicOutbid          = "auction.bid.outbid"
	TopicAuctionWon      = "auction.won"
	TopicPaymentRequired = "auction.payment.required"
)

// topicFor maps a domain event to its Kafka topic.
func topicFor(t domain.EventType) string {
	switch t {
	case domain.EventOutbid:
		return TopicOutbid
	case domain.EventAuctionWon:
		return TopicAuctionWon
	case domain.EventPaymentRequired:
		return TopicPaymentRequired
	default:
		return ""
	}
}

// PartitionKey keeps every event of one auction on one partition so consumers
// see them in order.
func PartitionKey(auctionID string) []byte { return []byte(auctionID) }
