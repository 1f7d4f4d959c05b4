package domain

// CollectionName identifies one named collection in the store. The set is
// fixed: reads against an unknown-but-enumerated name return an empty
// sequence, anything outside the set is rejected at the transport edge.
type CollectionName string

const (
	Members       CollectionName = "members"
	Recharges     CollectionName = "recharges"
	Consumptions  CollectionName = "consumptions"
	CardTypes     CollectionName = "cardTypes"
	Accounts      CollectionName = "accounts"
	OperationLogs CollectionName = "operationLogs"
)

// AllCollections returns every enumerated collection name in a stable order.
func AllCollections() []CollectionName {
	return []CollectionName{
		Members,
		Recharges,
		Consumptions,
		CardTypes,
		Accounts,
		OperationLogs,
	}
}

// ValidName reports whether name is one of the enumerated collections.
func ValidName(name CollectionName) bool {
	switch name {
	case Members, Recharges, Consumptions, CardTypes, Accounts, OperationLogs:
		return true
	}
	return false
}

func (n CollectionName) String() string {
	return string(n)
}
