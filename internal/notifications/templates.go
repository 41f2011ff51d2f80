package notifications

import (
	"fmt"
	"strings"

	"github.com/opulentlabs/storefront-backend/pkg/db/models"
)

func formatAmount(order *models.Order) string {
	return fmt.Sprintf("%s %.2f", order.Currency, float64(order.TotalCents)/100)
}

func customerConfirmationHTML(order *models.Order) string {
	var items strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&items, "<li>%s x%d</li>", item.ProductName, item.Qty)
	}

	delivery := "Pickup at store"
	if order.DeliveryArea != nil {
		delivery = "Delivery to " + *order.DeliveryArea
	}

	return fmt.Sprintf(`<h2>Thank you for your order, %s!</h2>
<p>Your payment of <strong>%s</strong> has been received.</p>
<p>Order reference: <strong>%s</strong></p>
<ul>%s</ul>
<p>%s</p>
<p>We will be in touch when your order is on its way.</p>
<p>Opulent Cosmetics</p>`,
		order.CustomerName,
		formatAmount(order),
		order.MerchantReference,
		items.String(),
		delivery,
	)
}

func adminAlertHTML(order *models.Order) string {
	tracking := ""
	if order.GatewayTrackingID != nil {
		tracking = fmt.Sprintf("<p>Tracking id: %s</p>", *order.GatewayTrackingID)
	}

	return fmt.Sprintf(`<h2>New paid order #%s</h2>
<p>Customer: %s (%s, %s)</p>
<p>Amount: %s</p>
<p>Reference: %s</p>
%s<p>Items: %d</p>`,
		shortID(order),
		order.CustomerName,
		order.Email,
		order.Phone,
		formatAmount(order),
		order.MerchantReference,
		tracking,
		len(order.Items),
	)
}
