package notify

import (
	"fmt"

	"github.com/ahmedandnoor/HappyClothify/internal/models"
)

// Missing is shown for address parts the customer did not submit.
const Missing = "N/A"

// FormatMessage renders the chat message for a new order.
func FormatMessage(order models.Order) string {
	return fmt.Sprintf("🛒 **New Order Received!**\n\n"+
		"👤 **Username:** %s\n"+
		"📍 **City:** %s, %s\n"+
		"📦 **Product:** %s\n"+
		"💰 **Price:** $%s\n"+
		"🔗 **Link:** %s\n"+
		"📱 **WhatsApp:** %s\n"+
		"🕒 **Time:** %s",
		order.Username,
		addressField(order.Address, "city"),
		addressField(order.Address, "province"),
		order.Product.Name,
		order.Product.Price,
		order.Product.Link,
		order.WhatsApp,
		order.Timestamp,
	)
}

func addressField(address map[string]string, key string) string {
	if v, ok := address[key]; ok {
		return v
	}
	return Missing
}
