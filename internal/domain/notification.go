package domain

// NotificationType is the severity class shown to the user.
type NotificationType string

const (
	NotificationTrade   NotificationType = "trade"
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// IsValid checks if the type is a valid value.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTrade, NotificationInfo, NotificationWarning, NotificationError:
		return true
	}
	return false
}

// Notification is a user-facing notice. Only Read is mutated after creation.
type Notification struct {
	ID            string           `json:"id"`
	Type          NotificationType `json:"type"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	WalletAddress string           `json:"walletAddress,omitempty"`
	TxSignature   string           `json:"txSignature,omitempty"`
	Read          bool             `json:"read"`
	CreatedAt     int64            `json:"createdAt"` // unix ms

	// DedupKey suppresses a second emit of the same logical notice. Not exposed.
	DedupKey string `json:"-"`
}
