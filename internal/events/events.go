package events

import (
	"encoding/json"
	"time"
)

const (
	EventTicketIssued  = "TicketIssued"
	EventStockRejected = "StockRejected"
)

// Envelope wraps every published event. Partition key is the cart id so all
// events for one cart keep their order.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload"`
}

type PurchasedItem struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type TicketIssuedPayload struct {
	CartID      string          `json:"cart_id"`
	TicketCode  string          `json:"ticket_code"`
	Purchaser   string          `json:"purchaser"`
	AmountCents int64           `json:"amount_cents"`
	Items       []PurchasedItem `json:"items"`
}

type StockRejectedPayload struct {
	CartID     string   `json:"cart_id"`
	Purchaser  string   `json:"purchaser"`
	ProductIDs []string `json:"product_ids"`
}

func PartitionKey(cartID string) []byte { return []byte(cartID) }

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
