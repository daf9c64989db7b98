package shipping

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/models"
)

// memStore is an in-memory Store. Soft-deleted shipments stay in the map with
// DeletedAt set.
type memStore struct {
	mu         sync.Mutex
	customers  map[int64]bool
	products   map[int64]bool
	warehouses map[int64]bool
	ports      map[int64]bool
	shipments  map[int64]*models.Shipment
	nextID     int64

	insertErr error
}

func newMemStore() *memStore {
	return &memStore{
		customers:  map[int64]bool{1: true},
		products:   map[int64]bool{1: true},
		warehouses: map[int64]bool{1: true, 2: true},
		ports:      map[int64]bool{1: true, 2: true},
		shipments:  map[int64]*models.Shipment{},
	}
}

func (m *memStore) FindCustomer(_ context.Context, id int64) (*models.Customer, error) {
	if !m.customers[id] {
		return nil, database.ErrCustomerNotFound
	}
	return &models.Customer{ID: id}, nil
}

func (m *memStore) FindProduct(_ context.Context, id int64) (*models.Product, error) {
	if !m.products[id] {
		return nil, database.ErrProductNotFound
	}
	return &models.Product{ID: id}, nil
}

func (m *memStore) FindWarehouse(_ context.Context, id int64) (*models.Warehouse, error) {
	if !m.warehouses[id] {
		return nil, database.ErrWarehouseNotFound
	}
	return &models.Warehouse{ID: id}, nil
}

func (m *memStore) FindPort(_ context.Context, id int64) (*models.Port, error) {
	if !m.ports[id] {
		return nil, database.ErrPortNotFound
	}
	return &models.Port{ID: id}, nil
}

func (m *memStore) InsertShipment(_ context.Context, s *models.Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, existing := range m.shipments {
		if existing.TrackingCode == s.TrackingCode {
			return database.ErrTrackingCodeTaken
		}
	}
	m.nextID++
	s.ID = m.nextID
	s.Version = 1
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	stored := *s
	m.shipments[s.ID] = &stored
	return nil
}

func (m *memStore) UpdateShipment(_ context.Context, s *models.Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.shipments[s.ID]
	if !ok || existing.DeletedAt != nil {
		return database.ErrShipmentNotFound
	}
	if existing.Version != s.Version || existing.Mode != s.Mode {
		return database.ErrVersionConflict
	}
	for id, other := range m.shipments {
		if id != s.ID && other.TrackingCode == s.TrackingCode {
			return database.ErrTrackingCodeTaken
		}
	}
	s.Version++
	s.UpdatedAt = time.Now()
	stored := *s
	m.shipments[s.ID] = &stored
	return nil
}

func (m *memStore) DeleteShipment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.shipments[id]
	if !ok || existing.DeletedAt != nil {
		return database.ErrShipmentNotFound
	}
	now := time.Now()
	existing.DeletedAt = &now
	return nil
}

func (m *memStore) GetShipment(_ context.Context, id int64) (*models.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.shipments[id]
	if !ok || existing.DeletedAt != nil {
		return nil, database.ErrShipmentNotFound
	}
	out := *existing
	return &out, nil
}

func (m *memStore) QueryShipments(_ context.Context, f models.ShipmentFilter, req models.PageRequest) (*models.Page[models.Shipment], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.Shipment
	for _, s := range m.shipments {
		switch {
		case s.DeletedAt != nil:
		case f.Query != "" && !strings.Contains(strings.ToLower(s.TrackingCode), strings.ToLower(f.Query)):
		case f.CustomerID != 0 && s.CustomerID != f.CustomerID:
		case f.ProductID != 0 && s.ProductID != f.ProductID:
		case f.Mode != "" && s.Mode != f.Mode:
		default:
			matched = append(matched, *s)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	start := min(req.Offset(), len(matched))
	end := min(start+req.PageSize, len(matched))
	return models.NewPage(matched[start:end], total, req), nil
}
