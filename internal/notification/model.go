package notification

import (
	"time"

	"storefront-be/internal/order"
)

type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindAdminNewOrder     Kind = "admin_new_order"
)

// Job is one email waiting to be sent. It is serialized as JSON when the
// queue lives in Redis.
type Job struct {
	ID        string       `json:"id"`
	Kind      Kind         `json:"kind"`
	To        string       `json:"to"`
	Order     *order.Order `json:"order"`
	Attempt   int          `json:"attempt"`
	NotBefore time.Time    `json:"notBefore"`
}

type Email struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}
