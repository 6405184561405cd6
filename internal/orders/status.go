package orders

import (
	"strings"

	"github.com/annetom/pizzaria-checkout/pkg/enums"
)

// BackendStatusDone is the status the backend expects when the customer
// confirms a delivery.
const BackendStatusDone = "finalizado"

// NormalizeStatus maps the free-form status strings the backend and the
// kitchen display use onto the canonical lifecycle. Unknown values are kept
// lowercased so nothing is lost; they are never considered active.
func NormalizeStatus(raw string) enums.OrderStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "":
		return enums.OrderStatusOpen
	case "finalizado", "done", "delivered", "entregue":
		return enums.OrderStatusDone
	case "cancelado", "cancelled", "canceled":
		return enums.OrderStatusCancelled
	}
	switch {
	case strings.Contains(s, "delivery"):
		return enums.OrderStatusOutForDelivery
	case strings.Contains(s, "prep"):
		return enums.OrderStatusPreparing
	}
	if parsed, err := enums.ParseOrderStatus(s); err == nil {
		return parsed
	}
	return enums.OrderStatus(s)
}

// StatusLabel is the customer-facing name of a status.
func StatusLabel(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusOpen:
		return "Recebido"
	case enums.OrderStatusPreparing:
		return "Em preparação"
	case enums.OrderStatusOutForDelivery:
		return "Saiu para entrega"
	case enums.OrderStatusDone:
		return "Entregue"
	case enums.OrderStatusCancelled:
		return "Cancelado"
	}
	return string(status)
}
