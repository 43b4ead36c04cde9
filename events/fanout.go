// Package events routes order lifecycle events to their consumers: the
// websocket hub for connected storefront clients, and optionally Kafka for
// downstream services.
package events

// Publisher is one event sink. The order service's notifier contract is
// satisfied by Fanout, which composes any number of sinks.
type Publisher interface {
	Publish(orderID, event string, payload any)
}

// Fanout delivers each event to every sink. Sinks are fire-and-forget;
// one failing sink never affects the others or the caller.
type Fanout []Publisher

func (f Fanout) Publish(orderID, event string, payload any) {
	for _, p := range f {
		p.Publish(orderID, event, payload)
	}
}
