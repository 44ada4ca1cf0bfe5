package handlers

import (
	"melowms/internal/core/types"
)

func toQuantity(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func toMoney(v float64) types.Money { return types.NewMoney(v) }
