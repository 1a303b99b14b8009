// Package memory implementa los puertos de persistencia en proceso, para tests y entornos efímeros.
// Cada transacción trabaja sobre una copia del estado y la publica solo si termina sin error.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/Inventario-clinica/internal/application/catalog"
	"github.com/jhoicas/Inventario-clinica/internal/application/inventory"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

type stockKey struct{ tenant, site, product string }

type costKey struct{ tenant, product string }

type productRow struct {
	p          entity.Product
	normalized string
}

type state struct {
	products  map[string]productRow
	sites     map[string]entity.Site
	stock     map[stockKey]entity.SiteStock
	costs     map[costKey]entity.ProductCost
	entries   []entity.CostEntry
	movements []entity.Movement
}

func newState() state {
	return state{
		products: make(map[string]productRow),
		sites:    make(map[string]entity.Site),
		stock:    make(map[stockKey]entity.SiteStock),
		costs:    make(map[costKey]entity.ProductCost),
	}
}

func (s state) clone() state {
	out := state{
		products:  make(map[string]productRow, len(s.products)),
		sites:     make(map[string]entity.Site, len(s.sites)),
		stock:     make(map[stockKey]entity.SiteStock, len(s.stock)),
		costs:     make(map[costKey]entity.ProductCost, len(s.costs)),
		entries:   append([]entity.CostEntry(nil), s.entries...),
		movements: append([]entity.Movement(nil), s.movements...),
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.sites {
		out.sites[k] = v
	}
	for k, v := range s.stock {
		out.stock[k] = v
	}
	for k, v := range s.costs {
		out.costs[k] = v
	}
	return out
}

// Store almacén en memoria. Las transacciones se serializan con mu.
type Store struct {
	mu    sync.RWMutex
	state state
	nowFn func() time.Time
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{state: newState(), nowFn: time.Now}
}

// SetClock fija el reloj usado para UpdatedAt (tests).
func (s *Store) SetClock(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// AddProduct registra un producto del catálogo (la gestión del catálogo es externa a este núcleo).
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[p.ID] = productRow{p: p, normalized: catalog.Normalize(p.Name)}
}

// AddSite registra una sede.
func (s *Store) AddSite(site entity.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.sites[site.ID] = site
}

// Run ejecuta fn sobre una copia del estado; la publica solo si fn y el contexto terminan sin error.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	stockRepo repository.StockRepository,
	costRepo repository.CostRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	v := view{st: &tx, now: s.nowFn}
	if err := fn(&MovementRepo{v}, &StockRepo{v}, &CostRepo{v}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.state = tx
	return nil
}

// Repositorios sobre el estado confirmado (fuera de transacción).

func (s *Store) committed() view {
	return view{st: &s.state, mu: &s.mu, now: s.nowFn}
}

func (s *Store) Products() *ProductRepo { return &ProductRepo{s.committed()} }
func (s *Store) Sites() *SiteRepo { return &SiteRepo{s.committed()} }
func (s *Store) Stock() *StockRepo { return &StockRepo{s.committed()} }
func (s *Store) Costs() *CostRepo { return &CostRepo{s.committed()} }
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s.committed()} }

// view da acceso al estado. mu es nil dentro de una transacción (el Store ya tiene el lock).
type view struct {
	st  *state
	mu  *sync.RWMutex
	now func() time.Time
}

func (v view) read(fn func(*state) error) error {
	if v.mu != nil {
		v.mu.RLock()
		defer v.mu.RUnlock()
	}
	return fn(v.st)
}

func (v view) write(fn func(*state) error) error {
	if v.mu != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
	}
	return fn(v.st)
}
