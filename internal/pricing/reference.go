package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewMerchantReference mints a unique order reference of the form
// ORD-<unix-millis>-<8-hex>. The reference doubles as the gateway
// transaction reference, so it must never be reused.
func NewMerchantReference() string {
	fragment := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), fragment)
}
