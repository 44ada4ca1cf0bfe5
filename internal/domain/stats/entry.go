// Package stats maintains the date-bucketed business metric totals kept per
// branch and per company. Every sale, purchase, expense approval, transfer
// and inventory mutation records exactly one Entry; the tree answers
// "totals for this day/month/year" without re-scanning source documents.
package stats

import (
	"math"
	"time"

	"melowms/internal/core/apperror"
)

// BusinessZone is the fixed timezone all stat buckets are computed in.
// Kigali has no daylight saving, so a fixed offset is exact year-round.
// Bucketing must never depend on the ambient timezone of the server.
var BusinessZone = time.FixedZone("Africa/Kigali", 2*60*60)

// Entry is one event's metric delta. Field names are the persisted wire
// contract; values are plain JSON numbers.
type Entry struct {
	Sales       float64 `json:"sales"`
	Stock       float64 `json:"stock"`
	Purchase    float64 `json:"purchase"`
	Accepted    float64 `json:"accepted"`
	SalesVAT    float64 `json:"sVAT"`
	PurchaseVAT float64 `json:"pVAT"`
	Expenses    float64 `json:"expenses"`
	Transfered  float64 `json:"transfered"`

	Date time.Time `json:"date"`
}

// Validate rejects entries that must not reach a bucket: a zero date would
// bucket at an arbitrary default, a non-finite number would poison every
// ancestor total.
func (e Entry) Validate() error {
	if e.Date.IsZero() {
		return apperror.NewValidation("stats entry has no date")
	}
	for name, v := range e.fields() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperror.NewValidation("stats entry field is not a finite number").
				WithDetail("field", name)
		}
	}
	return nil
}

func (e Entry) fields() map[string]float64 {
	return map[string]float64{
		"sales":      e.Sales,
		"stock":      e.Stock,
		"purchase":   e.Purchase,
		"accepted":   e.Accepted,
		"sVAT":       e.SalesVAT,
		"pVAT":       e.PurchaseVAT,
		"expenses":   e.Expenses,
		"transfered": e.Transfered,
	}
}

// Totals is the accumulated Entry shape held by every tree bucket.
type Totals struct {
	Sales       float64 `json:"sales"`
	Stock       float64 `json:"stock"`
	Purchase    float64 `json:"purchase"`
	Accepted    float64 `json:"accepted"`
	SalesVAT    float64 `json:"sVAT"`
	PurchaseVAT float64 `json:"pVAT"`
	Expenses    float64 `json:"expenses"`
	Transfered  float64 `json:"transfered"`
}

func (t *Totals) add(e Entry) {
	t.Sales += e.Sales
	t.Stock += e.Stock
	t.Purchase += e.Purchase
	t.Accepted += e.Accepted
	t.SalesVAT += e.SalesVAT
	t.PurchaseVAT += e.PurchaseVAT
	t.Expenses += e.Expenses
	t.Transfered += e.Transfered
}

// Add returns the field-wise sum of two entries. The date of the receiver
// wins; summing entries from different buckets is the caller's mistake.
func (e Entry) Add(other Entry) Entry {
	return Entry{
		Sales:       e.Sales + other.Sales,
		Stock:       e.Stock + other.Stock,
		Purchase:    e.Purchase + other.Purchase,
		Accepted:    e.Accepted + other.Accepted,
		SalesVAT:    e.SalesVAT + other.SalesVAT,
		PurchaseVAT: e.PurchaseVAT + other.PurchaseVAT,
		Expenses:    e.Expenses + other.Expenses,
		Transfered:  e.Transfered + other.Transfered,
		Date:        e.Date,
	}
}
