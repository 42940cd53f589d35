package models

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "Cash"
	PaymentMethodMukuru PaymentMethod = "Mukuru"
	PaymentMethodCard   PaymentMethod = "Card"
)

// NormalizePaymentMethod folds the spellings found in the workbooks into
// the canonical set. Unknown spellings default to Cash.
func NormalizePaymentMethod(s string) PaymentMethod {
	switch {
	case containsFold(s, "mukuru"):
		return PaymentMethodMukuru
	case containsFold(s, "card"):
		return PaymentMethodCard
	default:
		return PaymentMethodCash
	}
}

type TyreCategory string

const (
	TyreCategoryBrandedNew   TyreCategory = "branded_new"
	TyreCategoryBrandlessNew TyreCategory = "brandless_new"
	TyreCategorySecondHand   TyreCategory = "second_hand"
)

type LossType string

const (
	LossTypeBroken   LossType = "broken"
	LossTypeExchange LossType = "exchange"
	LossTypeRefund   LossType = "refund"
)

type RateType string

const (
	RateTypeCash   RateType = "cash"
	RateTypeMukuru RateType = "mukuru"
)

type SyncDirection string

const (
	SyncDirectionImport SyncDirection = "import"
	SyncDirectionExport SyncDirection = "export"
)

type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

type ImportStatus string

const (
	ImportStatusActive   ImportStatus = "active"
	ImportStatusReverted ImportStatus = "reverted"
)

type ProductKind string

const (
	ProductKindTyre  ProductKind = "tyre"
	ProductKindPhone ProductKind = "phone"
)
