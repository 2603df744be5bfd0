package models

// Product is a purchasable virtual card as shown in the storefront. The
// masked Number is display-only and regenerated on every catalog fetch.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Number      string  `json:"number"`
	Limit       string  `json:"limit"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
}

// CartLine pairs a product id with a quantity. Quantity is always >= 1;
// removing a line deletes it instead of keeping it at zero.
type CartLine struct {
	ProductID string `json:"id"`
	Quantity  int    `json:"quantity"`
}

// User is a storefront account. RemoteID is set when the record also exists
// in PocketBase; an empty RemoteID means the account is local-only.
type User struct {
	RemoteID     string `json:"pbId,omitempty"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	JoinDate     string `json:"joinDate"`
}

// PaymentItem is a denormalized cart line captured at checkout, with price
// and title resolved so the snapshot survives later catalog changes.
type PaymentItem struct {
	ProductID string  `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Total     float64 `json:"total"`
}

// PaymentRecord is a manual mobile-money payment proof. RemoteOK reports
// whether the remote submission succeeded; the record is appended to the
// local payment log either way.
type PaymentRecord struct {
	RemoteID    string        `json:"pbId,omitempty"`
	UserEmail   string        `json:"userEmail"`
	Amount      float64       `json:"amount"`
	Currency    string        `json:"currency"`
	AmountGHS   float64       `json:"amountGHS"`
	CartItems   []PaymentItem `json:"cartItems"`
	Screenshot  string        `json:"paymentScreenshot,omitempty"`
	Status      string        `json:"status"`
	SubmittedAt string        `json:"submittedAt"`
	RemoteOK    bool          `json:"pbSuccess"`
	RemoteErr   string        `json:"pbError,omitempty"`
}

// StatusPending is the only status a payment can have from this side;
// review happens out-of-band.
const StatusPending = "pending"

// OrderSummary is the dashboard view of a payment record.
type OrderSummary struct {
	ID         string        `json:"id"`
	Date       string        `json:"date"`
	Items      []PaymentItem `json:"items"`
	Total      string        `json:"total"`
	Status     string        `json:"status"`
	Screenshot string        `json:"paymentScreenshot,omitempty"`
}

// ExchangeRate is the single USD to GHS conversion rate. No history is kept.
type ExchangeRate struct {
	USDToGHS float64 `json:"usdToGhs"`
}

// Source names where an accessor result came from, so callers can surface
// degraded-mode messaging without inspecting errors.
type Source string

const (
	SourceCache    Source = "cache"
	SourceRemote   Source = "remote"
	SourceLocal    Source = "local"
	SourceFallback Source = "fallback"
)
