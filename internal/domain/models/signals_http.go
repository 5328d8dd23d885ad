package models

// Requests for the read API. Defined in domain for consistency and reuse.

type SymbolRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=20"`
}

type BarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=20"`
	N      int    `query:"n" json:"n" default:"60" validate:"gte=1,lte=5000"`
}

type VolumeRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=20"`
	N      int    `query:"n" json:"n" default:"20" validate:"gte=1,lte=1000"`
}

type SignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=20"`
	N      int    `query:"n" json:"n" default:"60" validate:"gte=1,lte=5000"`
}

type VolumeAlertsRequest struct {
	Symbols []string `query:"symbols" json:"symbols" validate:"omitempty,max=100,dive,required,max=20"`
}

type IngestionTriggerRequest struct {
	Symbols  []string `json:"symbols" validate:"omitempty,max=200,dive,required,max=20"`
	Period   string   `json:"period"`
	Interval string   `json:"interval"`
}
