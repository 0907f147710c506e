package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"marketplace/apps/marketplace/internal/model"
)

// orderDocument is the on-disk shape of the JSON store.
type orderDocument struct {
	Orders []model.Order `json:"orders"`
}

// JSONStore keeps every order in a single JSON document that is rewritten on each append.
// The mutex serializes read-modify-persist so concurrent requests see a single writer.
type JSONStore struct {
	path   string
	logger *zap.Logger

	mu  sync.Mutex
	doc *orderDocument
}

func NewJSONStore(path string, logger *zap.Logger) *JSONStore {
	return &JSONStore{path: path, logger: logger}
}

// EnsureLoaded reads the document into memory. A missing file is replaced by an empty
// document, which is written immediately. A file that is not JSON at all is moved aside to a
// .corrupt-<timestamp> sibling first. A JSON document that does not decode into orders is left
// untouched and reported as ErrStorageUnavailable.
func (s *JSONStore) EnsureLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoadedLocked()
}

func (s *JSONStore) ensureLoadedLocked() error {
	if s.doc != nil {
		return nil
	}

	data, err := os.ReadFile(s.path)
	switch {
	case err == nil && json.Valid(data):
		var doc orderDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			s.logger.Error("Order document does not match the order schema",
				zap.String("path", s.path),
				zap.Error(err))
			return storageError("decode order document", err)
		}
		if doc.Orders == nil {
			doc.Orders = []model.Order{}
		}
		s.doc = &doc
		s.logger.Info("Loaded order document",
			zap.String("path", s.path),
			zap.Int("orders", len(doc.Orders)))
		return nil
	case err == nil:
		if err := s.setAside("malformed"); err != nil {
			return err
		}
	case !errors.Is(err, fs.ErrNotExist):
		s.logger.Warn("Order document is unreadable", zap.String("path", s.path), zap.Error(err))
		if err := s.setAside("unreadable"); err != nil {
			return err
		}
	}

	empty := &orderDocument{Orders: []model.Order{}}
	if err := s.persist(empty); err != nil {
		return err
	}
	s.doc = empty

	s.logger.Info("Initialized empty order document", zap.String("path", s.path))
	return nil
}

// setAside renames the current document so a fresh one can take its place.
func (s *JSONStore) setAside(reason string) error {
	target := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().UnixNano())
	if err := os.Rename(s.path, target); err != nil {
		return storageError("move aside "+reason+" order document", err)
	}
	s.logger.Warn("Moved aside "+reason+" order document, reinitializing",
		zap.String("path", s.path),
		zap.String("moved_to", target))
	return nil
}

// Append adds the order and rewrites the document. Memory is only updated once the write
// has succeeded.
func (s *JSONStore) Append(ctx context.Context, order model.Order) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return model.Order{}, err
	}

	for _, existing := range s.doc.Orders {
		if existing.ID == order.ID {
			return model.Order{}, fmt.Errorf("%w: %s", ErrDuplicateOrderID, order.ID)
		}
	}

	orders := make([]model.Order, len(s.doc.Orders), len(s.doc.Orders)+1)
	copy(orders, s.doc.Orders)
	next := &orderDocument{Orders: append(orders, order)}

	if err := s.persist(next); err != nil {
		return model.Order{}, err
	}
	s.doc = next

	s.logger.Info("Appended order",
		zap.String("order_id", order.ID),
		zap.String("seller", order.Seller),
		zap.Int("orders", len(next.Orders)))
	return order, nil
}

func (s *JSONStore) ListAll(ctx context.Context) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}

	orders := make([]model.Order, len(s.doc.Orders))
	copy(orders, s.doc.Orders)
	return orders, nil
}

func (s *JSONStore) ListBySeller(ctx context.Context, address string) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	return filterBySeller(s.doc.Orders, address), nil
}

func (s *JSONStore) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}

	for _, o := range s.doc.Orders {
		if o.ID == id {
			found := o
			return &found, nil
		}
	}
	return nil, nil
}

// persist writes doc to a temporary file next to the target and renames it into place,
// so a crash mid-write leaves the previous document intact.
func (s *JSONStore) persist(doc *orderDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return storageError("encode order document", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageError("create order document directory", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return storageError("create temporary order document", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storageError("write order document", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storageError("sync order document", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return storageError("close order document", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return storageError("replace order document", err)
	}
	return nil
}
