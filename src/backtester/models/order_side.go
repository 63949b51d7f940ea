package models

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
	OrderSideHold OrderSide = "hold"
)

func (s OrderSide) IsValid() bool {
	return s == OrderSideBuy || s == OrderSideSell || s == OrderSideHold
}
