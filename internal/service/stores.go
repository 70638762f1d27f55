package service

// Stores groups the persistence backends the engine is wired against. Both the
// Postgres repositories and the in-memory store satisfy every field.
type Stores struct {
	Chemicals  chemicalStore
	Equipment  equipmentStore
	Glassware  glasswareStore
	Ledger     ledgerStore
	OutOfStock outOfStockStore
	Requests   requestStore
	Labs       labStore
}
