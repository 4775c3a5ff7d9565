package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/pilgrimapp/pilgrim-server/internal/domain"
	"github.com/pilgrimapp/pilgrim-server/internal/normalize"
)

// ErrVisitNotFound is returned when no visit exists for the (user, place) pair.
var ErrVisitNotFound = errors.New("visit not found")

// visitRecord is the stored form of a visit. Image keys are decoded raw
// because older records hold them in several shapes, sometimes under "images".
type visitRecord struct {
	domain.Visit
	ImageKeys json.RawMessage `json:"image_keys,omitempty"`
	Images    json.RawMessage `json:"images,omitempty"`
}

func decodeVisit(val []byte) (*domain.Visit, normalize.ImageKeyShape, error) {
	var rec visitRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, normalize.ShapeUnknown, fmt.Errorf("unmarshal visit: %w", err)
	}

	keys, shape := normalize.ImageKeys(rec.ImageKeys)
	if shape == normalize.ShapeAbsent {
		keys, shape = normalize.ImageKeys(rec.Images)
	}

	v := rec.Visit
	v.ImageKeys = keys
	return &v, shape, nil
}

// GetVisit retrieves one visit.
// Returns ErrVisitNotFound if the user has no record for the place.
func (s *Store) GetVisit(ctx context.Context, userID, placeID string) (*domain.Visit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validID(userID, placeID); err != nil {
		return nil, err
	}

	key := buildKey(s.cols.Visits, userID, placeID)
	defer releaseKey(key)

	var visit *domain.Visit
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrVisitNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			v, _, err := decodeVisit(val)
			visit = v
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return visit, nil
}

// ListVisitsByUser returns every visit recorded by userID, in key order.
func (s *Store) ListVisitsByUser(ctx context.Context, userID string) ([]*domain.Visit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validID(userID); err != nil {
		return nil, err
	}

	visits := make([]*domain.Visit, 0)
	err := s.scanPrefix(prefixKey(s.cols.Visits, userID), true, func(_, val []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, _, err := decodeVisit(val)
		if err != nil {
			return err
		}
		visits = append(visits, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return visits, nil
}

// UpsertVisit replaces the visit for (userID, placeID) with fields and stamps
// the write time. Last writer wins; there is no merge.
func (s *Store) UpsertVisit(ctx context.Context, userID, placeID string, fields domain.VisitFields) (*domain.Visit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validID(userID, placeID); err != nil {
		return nil, err
	}

	visit := &domain.Visit{
		UserID:    userID,
		PlaceID:   placeID,
		PlaceName: fields.PlaceName,
		Rating:    fields.Rating,
		Notes:     fields.Notes,
		VisitDate: fields.VisitDate,
		ImageKeys: normalize.KeyList(fields.ImageKeys),
		Timestamp: s.now().UTC(),
	}

	err := s.Transact(ctx, TxnOp{
		Kind:  OpPut,
		Key:   ownedKey(s.cols.Visits, userID, placeID),
		Value: visit,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert visit: %w", err)
	}
	return visit, nil
}

// DeleteVisit removes the visit. Deleting an absent visit succeeds.
func (s *Store) DeleteVisit(ctx context.Context, userID, placeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validID(userID, placeID); err != nil {
		return err
	}

	key := buildKey(s.cols.Visits, userID, placeID)
	defer releaseKey(key)

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// VisitImageKeys reads the image keys of a visit straight from the stored record,
// normalizing whatever shape they were written in. No record means no keys.
func (s *Store) VisitImageKeys(ctx context.Context, userID, placeID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validID(userID, placeID); err != nil {
		return nil, err
	}

	var (
		raw   []byte
		found bool
	)
	key := buildKey(s.cols.Visits, userID, placeID)
	defer releaseKey(key)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read visit: %w", err)
	}
	if !found {
		return []string{}, nil
	}

	visit, shape, err := decodeVisit(raw)
	if err != nil {
		return nil, err
	}
	if shape != normalize.ShapeList && shape != normalize.ShapeAbsent && s.logger != nil {
		s.logger.Debug("normalized legacy image keys",
			"user_id", userID,
			"place_id", placeID,
			"shape", string(shape),
			"count", len(visit.ImageKeys),
		)
	}
	return visit.ImageKeys, nil
}
