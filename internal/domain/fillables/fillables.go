// Package fillables tracks returnable packaging (crates, bottles) per
// customer. Every sale of a fillable item moves the customer's empties
// balance: taken empties go out with the goods, returned empties come back
// with the truck.
package fillables

import (
	"context"
	"fmt"
	"time"

	"melowms/internal/core/apperror"
	"melowms/internal/core/store"
	"melowms/internal/core/types"
)

// Account is a customer's empties balance for one packaging group. Balance
// is what the customer currently holds and owes back.
type Account struct {
	Customer      string         `json:"customer"`
	Group         string         `json:"group"`
	Balance       types.Quantity `json:"balance"`
	TotalTaken    types.Quantity `json:"totalTaken"`
	TotalReturned types.Quantity `json:"totalReturned"`
	CreatedTime   time.Time      `json:"createdTime"`
	UpdatedTime   time.Time      `json:"updatedTime"`
}

// Path returns the fillables account path for a customer.
func Path(companyID, customerID string) string {
	return fmt.Sprintf("companies/%s/customer_fillables/%s", companyID, customerID)
}

// Service manages fillables accounts over the document store.
type Service struct {
	store store.Store
}

// NewService creates a fillables service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Open creates the account for a customer joining a packaging group.
func (s *Service) Open(ctx context.Context, companyID, customerID, group string) error {
	if group == "" {
		return apperror.NewValidation("fillable group is required")
	}
	now := time.Now().UTC()
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Create(Path(companyID, customerID), Account{
			Customer:    customerID,
			Group:       group,
			CreatedTime: now,
			UpdatedTime: now,
		})
	})
}

// Settle adjusts a customer's balance on the caller's transaction: taken
// empties raise the balance, returned ones lower it. A sale of fillable
// items against a customer without an account is a configuration error
// surfaced to the caller.
func (s *Service) Settle(ctx context.Context, tx store.Tx, companyID, customerID string, taken, returned types.Quantity) error {
	if taken.IsNegative() || returned.IsNegative() {
		return apperror.NewValidation("fillable quantities cannot be negative")
	}

	path := Path(companyID, customerID)
	snapshot, err := tx.Get(path)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return apperror.NewFillablesMissing(customerID)
	}

	var acc Account
	if err := snapshot.DataTo(&acc); err != nil {
		return err
	}

	acc.Balance += taken - returned
	acc.TotalTaken += taken
	acc.TotalReturned += returned
	acc.UpdatedTime = time.Now().UTC()

	return tx.Update(path, acc)
}

// Get loads a customer's account, or nil when none exists.
func (s *Service) Get(ctx context.Context, companyID, customerID string) (*Account, error) {
	snapshot, err := s.store.Get(ctx, Path(companyID, customerID))
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, nil
	}
	var acc Account
	if err := snapshot.DataTo(&acc); err != nil {
		return nil, err
	}
	return &acc, nil
}
