// Package expenses implements branch expense records with an approval
// flow. Only approved expenses count toward the branch's expense stats;
// revoking an approval books the negative delta so the totals stay honest.
package expenses

import (
	"context"
	"fmt"
	"time"

	"melowms/internal/core/apperror"
	"melowms/internal/core/id"
	"melowms/internal/core/store"
	"melowms/internal/core/types"
	"melowms/internal/domain/stats"
)

// Status of an expense record.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
)

// Expense is one branch expense document.
type Expense struct {
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Amount       types.Money `json:"amount"`
	Category     string      `json:"category"`
	Status       Status      `json:"status"`
	RequestedBy  string      `json:"requestedBy"`
	ApprovedBy   string      `json:"approvedBy,omitempty"`
	Branch       string      `json:"branch"`
	Company      string      `json:"company"`
	CreatedTime  time.Time   `json:"createdTime"`
	UpdatedTime  time.Time   `json:"updatedTime"`
	ApprovedTime *time.Time  `json:"approvedTime,omitempty"`
}

// Path returns the expense document path within a branch.
func Path(companyID, branchID, expenseID string) string {
	return fmt.Sprintf("companies/%s/branches/%s/expenses/%s", companyID, branchID, expenseID)
}

// CollectionPath returns a branch's expenses collection path.
func CollectionPath(companyID, branchID string) string {
	return fmt.Sprintf("companies/%s/branches/%s/expenses", companyID, branchID)
}

// Service manages expenses.
type Service struct {
	store store.Store
	stats *stats.Service
}

// NewService creates an expenses service.
func NewService(st store.Store, statsSvc *stats.Service) *Service {
	return &Service{store: st, stats: statsSvc}
}

// CreateInput is a new expense request.
type CreateInput struct {
	CompanyID   string
	BranchID    string
	Title       string
	Description string
	Amount      types.Money
	Category    string
	RequestedBy string
}

// Create stores a PENDING expense and returns its id.
func (s *Service) Create(ctx context.Context, in CreateInput) (string, error) {
	if in.Title == "" {
		return "", apperror.NewValidation("expense title is required")
	}
	if !in.Amount.IsPositive() {
		return "", apperror.NewValidation("expense amount must be positive")
	}

	expenseID := id.New().String()
	now := time.Now().UTC()
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Create(Path(in.CompanyID, in.BranchID, expenseID), Expense{
			Title:       in.Title,
			Description: in.Description,
			Amount:      in.Amount,
			Category:    in.Category,
			Status:      StatusPending,
			RequestedBy: in.RequestedBy,
			Branch:      in.BranchID,
			Company:     in.CompanyID,
			CreatedTime: now,
			UpdatedTime: now,
		})
	})
	if err != nil {
		return "", err
	}
	return expenseID, nil
}

// Approve marks the expense approved and books its amount into the branch
// stats.
func (s *Service) Approve(ctx context.Context, companyID, branchID, expenseID, approvedBy string) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		path := Path(companyID, branchID, expenseID)
		exp, err := s.load(tx, path, expenseID)
		if err != nil {
			return err
		}
		if exp.Status == StatusApproved {
			return apperror.NewAlreadyConfirmed("expense", expenseID)
		}

		now := time.Now().UTC()
		exp.Status = StatusApproved
		exp.ApprovedBy = approvedBy
		exp.ApprovedTime = &now
		exp.UpdatedTime = now
		if err := tx.Update(path, exp); err != nil {
			return err
		}

		return s.stats.Record(ctx, tx, companyID, branchID, stats.Entry{
			Expenses: exp.Amount.InexactFloat64(),
			Date:     now,
		})
	})
}

// Revoke withdraws an approval and books the negative amount, restoring
// the stats to their pre-approval value.
func (s *Service) Revoke(ctx context.Context, companyID, branchID, expenseID string) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		path := Path(companyID, branchID, expenseID)
		exp, err := s.load(tx, path, expenseID)
		if err != nil {
			return err
		}
		if exp.Status != StatusApproved {
			return apperror.NewValidation("expense is not approved")
		}

		now := time.Now().UTC()
		exp.Status = StatusPending
		exp.ApprovedBy = ""
		exp.ApprovedTime = nil
		exp.UpdatedTime = now
		if err := tx.Update(path, exp); err != nil {
			return err
		}

		return s.stats.Record(ctx, tx, companyID, branchID, stats.Entry{
			Expenses: -exp.Amount.InexactFloat64(),
			Date:     now,
		})
	})
}

func (s *Service) load(tx store.Tx, path, expenseID string) (*Expense, error) {
	snapshot, err := tx.Get(path)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, apperror.NewNotFound("expense", expenseID)
	}
	var exp Expense
	if err := snapshot.DataTo(&exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

// Get loads one expense document.
func (s *Service) Get(ctx context.Context, companyID, branchID, expenseID string) (*Expense, error) {
	snapshot, err := s.store.Get(ctx, Path(companyID, branchID, expenseID))
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, apperror.NewNotFound("expense", expenseID)
	}
	var exp Expense
	if err := snapshot.DataTo(&exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

// List returns a branch's expenses, newest first.
func (s *Service) List(ctx context.Context, companyID, branchID string) ([]Expense, error) {
	docs, err := s.store.Query(ctx, store.Query{
		Collection: CollectionPath(companyID, branchID),
		OrderBy:    "createdTime",
		Desc:       true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Expense, 0, len(docs))
	for _, doc := range docs {
		var exp Expense
		if err := doc.DataTo(&exp); err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	return out, nil
}
