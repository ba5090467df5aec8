package model

import (
	"main/internal/schema"
)

// Spec renders the contract in its wire form.
func (c Contract) Spec() schema.ContractSpec {
	spec := schema.ContractSpec{
		Symbol:       c.Symbol,
		SecurityType: c.SecurityType.String(),
		Exchange:     c.Exchange,
		Currency:     c.Currency,
		Strike:       c.Strike,
		Multiplier:   c.Multiplier,
	}
	if !c.Expiry.IsZero() {
		spec.Expiry = c.Expiry.Format("20060102")
	}
	if c.Right.IsAvailable() {
		spec.Right = c.Right.String()
	}
	return spec
}

// PlaceRequest renders the order as a place/modify command for the given
// external id.
func (o Order) PlaceRequest(externalID int64) schema.PlaceOrderRequest {
	return schema.PlaceOrderRequest{
		OrderID:     externalID,
		Contract:    o.Contract.Spec(),
		Side:        o.Side.String(),
		Kind:        o.Kind.String(),
		Quantity:    o.Quantity,
		LimitPrice:  o.LimitPrice,
		StopPrice:   o.StopPrice,
		TimeInForce: o.TimeInForce.String(),
	}
}
