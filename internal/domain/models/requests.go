package models

// AlertsRequest filters the in-memory alert log.
type AlertsRequest struct {
	Symbol        string  `query:"symbol"`
	Direction     string  `query:"direction" validate:"omitempty,oneof=BULLISH BEARISH NEUTRAL"`
	Type          string  `query:"type" validate:"omitempty,oneof=SWEEP BLOCK DARK_POOL INSTITUTIONAL_FLOW OI_ACCELERATION UNUSUAL_VOLUME IV_SPIKE DELTA_MOMENTUM"`
	Decision      string  `query:"decision" validate:"omitempty,oneof=BUY SELL WAIT"`
	MinConviction float64 `query:"min_conviction" validate:"gte=0,lte=100"`
	MinPremium    float64 `query:"min_premium" validate:"gte=0"`
	Since         string  `query:"since"`
	Limit         int     `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// ArchiveRequest reads back archived signals for a symbol and time range.
type ArchiveRequest struct {
	Symbol string `query:"symbol" validate:"required"`
	From   string `query:"from"`
	To     string `query:"to"`
	Limit  int    `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// SymbolRequest addresses one symbol via path param.
type SymbolRequest struct {
	Symbol string `param:"symbol" validate:"required"`
}
