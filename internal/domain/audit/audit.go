// Package audit keeps an append-only trail of business operations:
// confirms, accepts, rejects, restocks, approvals. Entries are written
// best-effort after the business transaction commits; a failed audit write
// is logged but never fails the operation it describes.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "melowms/internal/core/context"
	"melowms/internal/core/id"
	"melowms/internal/core/store"
	"melowms/pkg/logger"
)

// CompressionAlgo specifies the compression algorithm used for the payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// Entry is one audit document under companies/{id}/audit/{autoId}.
type Entry struct {
	Operation string `json:"operation"`
	Entity    string `json:"entity"`
	EntityID  string `json:"entityId"`
	UserID    string `json:"userId,omitempty"`
	Branch    string `json:"branch,omitempty"`

	// Payload holds the operation snapshot. Large snapshots are stored
	// zstd-compressed in PayloadCompressed instead.
	Payload           json.RawMessage `json:"payload,omitempty"`
	PayloadCompressed []byte          `json:"payloadCompressed,omitempty"`
	CompressionAlgo   CompressionAlgo `json:"compressionAlgo"`

	CreatedTime time.Time `json:"createdTime"`
}

// Service writes and reads audit entries.
type Service struct {
	store store.Store

	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewService creates an audit service.
func NewService(st store.Store) (*Service, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Service{
		store:             st,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

func collectionPath(companyID string) string {
	return "companies/" + companyID + "/audit"
}

// Record writes one entry. Best-effort: errors are logged, not returned,
// so callers fire it after their transaction without a second failure
// path.
func (s *Service) Record(ctx context.Context, companyID, operation, entity, entityID string, payload any) {
	entry := Entry{
		Operation:       operation,
		Entity:          entity,
		EntityID:        entityID,
		CompressionAlgo: CompressionNone,
		CreatedTime:     time.Now().UTC(),
	}
	if user := appctx.GetUser(ctx); user != nil {
		entry.UserID = user.UserID
		entry.Branch = user.BranchID
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			logger.Warn(ctx, "audit payload marshal failed", "operation", operation, "error", err)
			return
		}
		if len(raw) > s.compressThreshold {
			entry.PayloadCompressed = s.encoder.EncodeAll(raw, nil)
			entry.CompressionAlgo = CompressionZstd
		} else {
			entry.Payload = raw
		}
	}

	path := collectionPath(companyID) + "/" + id.New().String()
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Create(path, entry)
	})
	if err != nil {
		logger.Warn(ctx, "audit write failed", "operation", operation, "entity_id", entityID, "error", err)
	}
}

// Payload returns the entry's snapshot, decompressing when needed.
func (s *Service) Payload(e Entry) (json.RawMessage, error) {
	if e.CompressionAlgo != CompressionZstd {
		return e.Payload, nil
	}
	raw, err := s.decoder.DecodeAll(e.PayloadCompressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress audit payload: %w", err)
	}
	return raw, nil
}

// List returns a company's audit trail, newest first.
func (s *Service) List(ctx context.Context, companyID string, limit int) ([]Entry, error) {
	docs, err := s.store.Query(ctx, store.Query{
		Collection: collectionPath(companyID),
		OrderBy:    "createdTime",
		Desc:       true,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		var e Entry
		if err := doc.DataTo(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
