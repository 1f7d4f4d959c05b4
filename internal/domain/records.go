package domain

import "time"

// Member statuses. Members are deactivated rather than deleted so their
// recharge and consumption history stays attributable.
const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
)

// Consumption record statuses.
const (
	ConsumptionStatusCompleted = "completed"
	ConsumptionStatusRefunded  = "refunded"
)

// Member is one row of the members collection. Card is embedded by value:
// a member holds at most one active card and the card has no life of its
// own outside the member record.
type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone"`
	JoinDate time.Time `json:"joinDate"`
	Balance  float64   `json:"balance"`
	Card     *Card     `json:"card,omitempty"`
	Status   string    `json:"status"`
}

// Card tracks a prepaid punch card issued against a CardType. The counts
// must satisfy UsedCount + RemainingCount == TotalCount at all times.
type Card struct {
	ID             string    `json:"id"`
	TypeName       string    `json:"typeName"`
	TotalCount     int       `json:"totalCount"`
	UsedCount      int       `json:"usedCount"`
	RemainingCount int       `json:"remainingCount"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// Expired reports whether the card is past its expiry at the given time.
func (c *Card) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// RechargeRecord captures a balance top-up. Balance is a snapshot of the
// member's balance immediately after the recharge was applied.
type RechargeRecord struct {
	ID            string    `json:"id"`
	MemberID      string    `json:"memberId"`
	Amount        float64   `json:"amount"`
	Balance       float64   `json:"balance"`
	PaymentMethod string    `json:"paymentMethod"`
	CreatedAt     time.Time `json:"createdAt"`
	Operator      string    `json:"operator"`
}

// ConsumptionRecord captures one service charge. When UsedCard is set the
// charge was settled against the member's card counts instead of balance.
type ConsumptionRecord struct {
	ID            string    `json:"id"`
	MemberID      string    `json:"memberId"`
	Amount        float64   `json:"amount"`
	Category      string    `json:"category"`
	PaymentMethod string    `json:"paymentMethod"`
	UsedCard      bool      `json:"usedCard"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	Operator      string    `json:"operator"`
}

// CardType is a catalog entry. Issuing a card copies the relevant fields
// onto the member's Card by value; later catalog edits do not retroactively
// change issued cards.
type CardType struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Count        int     `json:"count"`
	ValidityDays int     `json:"validityDays"`
	Active       bool    `json:"active"`
}

// Account is an operator login stored in the accounts collection. The
// password is kept only as a bcrypt hash.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// OperationLog records who did what through the admin tool.
type OperationLog struct {
	ID        string    `json:"id"`
	Operator  string    `json:"operator"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"createdAt"`
}
