package stock

// AdjustRequest is the payload for direct ledger adjustments.
type AdjustRequest struct {
	Delta    float64  `json:"delta" validate:"required"`
	Type     string   `json:"movement_type,omitempty"`
	Notes    string   `json:"notes,omitempty" validate:"max=500"`
	UnitCost *float64 `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
	Actor    string   `json:"actor,omitempty" validate:"max=100"`
}

// QuantityRequest is the payload for reserve/release/fulfill.
type QuantityRequest struct {
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
	Notes    string  `json:"notes,omitempty" validate:"max=500"`
	Actor    string  `json:"actor,omitempty" validate:"max=100"`
}

// ReceiveRequest is the payload for inbound stock.
type ReceiveRequest struct {
	Quantity float64  `json:"quantity" validate:"required,gt=0"`
	UnitCost *float64 `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
	Notes    string   `json:"notes,omitempty" validate:"max=500"`
	Actor    string   `json:"actor,omitempty" validate:"max=100"`
}

// RecordResponse decorates a ledger record with derived indicators.
type RecordResponse struct {
	Record
	StockValue            float64 `json:"stock_value"`
	ReservationPercentage float64 `json:"reservation_percentage"`
}

// NewRecordResponse builds the response shape for one record.
func NewRecordResponse(rec Record) RecordResponse {
	return RecordResponse{
		Record:                rec,
		StockValue:            rec.StockValue(),
		ReservationPercentage: rec.ReservationPercentage(),
	}
}
