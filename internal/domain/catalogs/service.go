package catalogs

import (
	"context"

	"melowms/internal/core/apperror"
	"melowms/internal/core/id"
	"melowms/internal/core/store"
)

// Collection is a generic CRUD service over one per-company document
// collection. Entity-specific services embed it and add their own methods
// on top.
type Collection[T any] struct {
	store store.Store
	name  string // collection segment under the company document
	label string // entity name used in error messages
}

// NewCollection creates a collection service for one catalog.
func NewCollection[T any](st store.Store, name, label string) *Collection[T] {
	return &Collection[T]{store: st, name: name, label: label}
}

func (c *Collection[T]) path(companyID, docID string) string {
	return "companies/" + companyID + "/" + c.name + "/" + docID
}

// Create stores a new document and returns its generated id.
func (c *Collection[T]) Create(ctx context.Context, companyID string, doc T) (string, error) {
	docID := id.New().String()
	err := c.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Create(c.path(companyID, docID), doc)
	})
	if err != nil {
		return "", err
	}
	return docID, nil
}

// Get loads one document.
func (c *Collection[T]) Get(ctx context.Context, companyID, docID string) (*T, error) {
	snapshot, err := c.store.Get(ctx, c.path(companyID, docID))
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, apperror.NewNotFound(c.label, docID)
	}
	var out T
	if err := snapshot.DataTo(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces an existing document.
func (c *Collection[T]) Update(ctx context.Context, companyID, docID string, doc T) error {
	return c.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Update(c.path(companyID, docID), doc)
	})
}

// Delete removes a document.
func (c *Collection[T]) Delete(ctx context.Context, companyID, docID string) error {
	return c.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Delete(c.path(companyID, docID))
	})
}

// List returns every document of a company's collection ordered by name.
func (c *Collection[T]) List(ctx context.Context, companyID string) (map[string]T, error) {
	docs, err := c.store.Query(ctx, store.Query{
		Collection: "companies/" + companyID + "/" + c.name,
		OrderBy:    "name",
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(docs))
	for _, doc := range docs {
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, err
		}
		out[doc.ID()] = v
	}
	return out, nil
}

// Service bundles the typed catalog collections plus company-level access.
type Service struct {
	store store.Store

	Branches  *Collection[Branch]
	Customers *Collection[Customer]
	Suppliers *Collection[Supplier]
	Items     *Collection[Item]
}

// NewService creates the catalogs service.
func NewService(st store.Store) *Service {
	return &Service{
		store:     st,
		Branches:  NewCollection[Branch](st, "branches", "branch"),
		Customers: NewCollection[Customer](st, "customers", "customer"),
		Suppliers: NewCollection[Supplier](st, "suppliers", "supplier"),
		Items:     NewCollection[Item](st, "items", "item"),
	}
}

// CreateCompany stores a new company root document.
func (s *Service) CreateCompany(ctx context.Context, c Company) (string, error) {
	companyID := id.New().String()
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Create("companies/"+companyID, c)
	})
	if err != nil {
		return "", err
	}
	return companyID, nil
}

// GetCompany loads a company root document.
func (s *Service) GetCompany(ctx context.Context, companyID string) (*Company, error) {
	snapshot, err := s.store.Get(ctx, "companies/"+companyID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, apperror.NewNotFound("company", companyID)
	}
	var c Company
	if err := snapshot.DataTo(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCompany replaces a company root document.
func (s *Service) UpdateCompany(ctx context.Context, companyID string, c Company) error {
	return s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Update("companies/"+companyID, c)
	})
}
