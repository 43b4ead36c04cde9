package paystack

import "encoding/json"

// Webhook event types the order flow cares about.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// WebhookEvent is the envelope Paystack POSTs to the webhook endpoint.
type WebhookEvent struct {
	Event string           `json:"event"`
	Data  WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"`
	GatewayResponse string          `json:"gateway_response"`
	Metadata        WebhookMetadata `json:"metadata"`
}

// WebhookMetadata echoes what Initialize planted. Paystack forwards
// metadata verbatim, so order_id tolerates string or numeric encodings.
type WebhookMetadata struct {
	OrderID string `json:"order_id"`
}

func (m *WebhookMetadata) UnmarshalJSON(data []byte) error {
	var raw struct {
		OrderID json.RawMessage `json:"order_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.OrderID = ""
	if len(raw.OrderID) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.OrderID, &s); err == nil {
		m.OrderID = s
		return nil
	}
	m.OrderID = string(raw.OrderID)
	return nil
}
