package domain

import (
	"time"

	"github.com/google/uuid"
)

// Direction tells whether a message came from the lead or was sent to it.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// Message is one chat message of a lead offer conversation.
type Message struct {
	ID          uuid.UUID `json:"id"`
	LeadOfferID uuid.UUID `json:"leadOfferId"`
	Direction   Direction `json:"direction"`
	Content     string    `json:"content"`
	ExternalID  *string   `json:"externalId,omitempty"`
	Delivered   bool      `json:"delivered"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ConversationMetrics feeds the conversation quality dimension.
type ConversationMetrics struct {
	MessageCount       int     `json:"messageCount"`
	InboundCount       int     `json:"inboundCount"`
	AvgResponseSeconds float64 `json:"avgResponseSeconds"`
}

// ComputeConversationMetrics derives message count and the lead's average
// response latency. Latency is measured from each outbound message to the
// first inbound message that follows it. Messages must be in chronological order.
func ComputeConversationMetrics(history []Message) ConversationMetrics {
	metrics := ConversationMetrics{MessageCount: len(history)}

	var pendingOutbound *time.Time
	var totalLatency time.Duration
	var samples int
	for i := range history {
		msg := history[i]
		switch msg.Direction {
		case DirectionOutbound:
			if pendingOutbound == nil {
				at := msg.CreatedAt
				pendingOutbound = &at
			}
		case DirectionInbound:
			metrics.InboundCount++
			if pendingOutbound != nil {
				if latency := msg.CreatedAt.Sub(*pendingOutbound); latency >= 0 {
					totalLatency += latency
					samples++
				}
				pendingOutbound = nil
			}
		}
	}

	if samples > 0 {
		metrics.AvgResponseSeconds = totalLatency.Seconds() / float64(samples)
	}
	return metrics
}
