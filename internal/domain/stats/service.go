package stats

import (
	"context"
	"fmt"
	"time"

	appctx "melowms/internal/core/context"
	"melowms/internal/core/store"
	"melowms/pkg/logger"
)

// StatsDocID is the fixed document id of the single stats document kept per
// branch and per company (one source of truth per scope).
const StatsDocID = "stat0"

// Doc is the persisted stats document shape.
type Doc struct {
	Stats       *ExportStats `json:"stats"`
	UpdatedTime time.Time    `json:"updatedTime"`
	CreatedTime time.Time    `json:"createdTime"`
	UIDs        []string     `json:"uids"`
}

// Service applies stat entries to the branch and company stats documents.
// Record runs on a transaction handle owned by the calling business
// operation, so the metric roll-up commits atomically with the event that
// produced it.
type Service struct {
	store store.Store
}

// NewService creates a stats service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// BranchStatsPath returns the branch stats document path.
func BranchStatsPath(companyID, branchID string) string {
	return fmt.Sprintf("companies/%s/branches/%s/branch_stats/%s", companyID, branchID, StatsDocID)
}

// CompanyStatsPath returns the company stats document path.
func CompanyStatsPath(companyID string) string {
	return fmt.Sprintf("companies/%s/company_stats/%s", companyID, StatsDocID)
}

// Record adds one entry to both the branch and the company stats documents
// on the given transaction handle. Callers must invoke it at most once per
// triggering event.
func (s *Service) Record(ctx context.Context, tx store.Tx, companyID, branchID string, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	uid := ""
	if user := appctx.GetUser(ctx); user != nil {
		uid = user.UserID
	}

	for _, path := range []string{
		BranchStatsPath(companyID, branchID),
		CompanyStatsPath(companyID),
	} {
		if err := applyEntry(tx, path, e, uid); err != nil {
			return fmt.Errorf("record stats at %s: %w", path, err)
		}
	}
	return nil
}

// RecordStandalone runs Record inside its own transaction. Used by events
// that have no surrounding business transaction of their own.
func (s *Service) RecordStandalone(ctx context.Context, companyID, branchID string, e Entry) error {
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return s.Record(ctx, tx, companyID, branchID, e)
	})
	if err != nil {
		return err
	}

	logger.Debug(ctx, "stats recorded",
		"company_id", companyID,
		"branch_id", branchID,
		"date", e.Date)
	return nil
}

func applyEntry(tx store.Tx, path string, e Entry, uid string) error {
	snapshot, err := tx.Get(path)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	doc := Doc{CreatedTime: now}
	if snapshot != nil {
		if err := snapshot.DataTo(&doc); err != nil {
			return err
		}
	}

	tree := FromObj(doc.Stats)
	if err := tree.Add(e); err != nil {
		return err
	}

	doc.Stats = tree.ToObj()
	doc.UpdatedTime = now
	if uid != "" && !contains(doc.UIDs, uid) {
		doc.UIDs = append(doc.UIDs, uid)
	}

	return tx.Set(path, doc)
}

// GetBranchStats loads the stats document of a branch, or nil when no event
// was ever recorded there.
func (s *Service) GetBranchStats(ctx context.Context, companyID, branchID string) (*Doc, error) {
	return s.load(ctx, BranchStatsPath(companyID, branchID))
}

// GetCompanyStats loads the company-wide stats document.
func (s *Service) GetCompanyStats(ctx context.Context, companyID string) (*Doc, error) {
	return s.load(ctx, CompanyStatsPath(companyID))
}

func (s *Service) load(ctx context.Context, path string) (*Doc, error) {
	snapshot, err := s.store.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, nil
	}
	var doc Doc
	if err := snapshot.DataTo(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
