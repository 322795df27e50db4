package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

const (
	CurrencyUSD = "USD"
	CurrencyKES = "KES"
)

// IsSupportedCurrency reports whether c is one of the two wallet currencies.
func IsSupportedCurrency(c string) bool {
	return c == CurrencyUSD || c == CurrencyKES
}

// Transaction types.
const (
	TxTypeSend         = "send"
	TxTypeReceive      = "receive"
	TxTypeDeposit      = "deposit"
	TxTypeWithdraw     = "withdraw"
	TxTypeExchange     = "exchange"
	TxTypeAirtime      = "airtime"
	TxTypeCardPurchase = "card_purchase"
)

// Transaction statuses.
const (
	TxStatusPending    = "pending"
	TxStatusProcessing = "processing"
	TxStatusCompleted  = "completed"
	TxStatusFailed     = "failed"
)

// Virtual card statuses.
const (
	CardStatusActive   = "active"
	CardStatusInactive = "inactive"
	CardStatusFrozen   = "frozen"
	CardStatusBlocked  = "blocked"
)

const (
	KYCStatusNone     = "none"
	KYCStatusPending  = "pending"
	KYCStatusVerified = "verified"
	KYCStatusRejected = "rejected"
)

const (
	KYCDocPending  = "pending"
	KYCDocApproved = "approved"
	KYCDocRejected = "rejected"
)

// PayHero callback "type" query values.
const (
	PaymentPurposeVirtualCard = "virtual-card"
)

// System setting keys.
const (
	SettingExchangeFeeBps      = "exchange_fee_bps"
	SettingWithdrawalFeeBps    = "withdrawal_fee_bps"
	SettingVirtualCardPriceKES = "virtual_card_price_kes"
)

// Notification types.
const (
	NotifTransferReceived   = "TRANSFER_RECEIVED"
	NotifTransferSent       = "TRANSFER_SENT"
	NotifExchangeCompleted  = "EXCHANGE_COMPLETED"
	NotifDepositCompleted   = "DEPOSIT_COMPLETED"
	NotifWithdrawalApproved = "WITHDRAWAL_APPROVED"
	NotifWithdrawalRejected = "WITHDRAWAL_REJECTED"
	NotifCardIssued         = "CARD_ISSUED"
	NotifKYCReviewed        = "KYC_REVIEWED"
	NotifAirtimePurchased   = "AIRTIME_PURCHASED"
)
