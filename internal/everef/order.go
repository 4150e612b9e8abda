package everef

// SellOrder is one qualifying row from the market-orders snapshot:
// a sell order sitting at one of the tracked hubs.
type SellOrder struct {
	TypeID    int32
	StationID int64
	Price     float64
	Volume    int64
}

// LoadStats counts what happened to the raw rows during one load.
type LoadStats struct {
	Rows      int64 // data rows scanned (header excluded)
	Kept      int64 // sell orders at tracked hubs
	Malformed int64 // dropped: unparsable fields, price <= 0, negative volume
	BuyOrders int64 // dropped: is_buy_order true
	OffHub    int64 // dropped: station outside the hub set
}
