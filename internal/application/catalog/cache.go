package catalog

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
)

// Cache guarda resoluciones de catálogo por (organización, referencia) con TTL.
// Se construye explícitamente y se inyecta; Purge la vacía (p. ej. tras cambios administrativos del catálogo).
type Cache struct {
	lru *expirable.LRU[string, entity.Product]
}

// NewCache crea la caché. size <= 0 desactiva la caché (todas las consultas van al repositorio).
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		return &Cache{}
	}
	return &Cache{lru: expirable.NewLRU[string, entity.Product](size, nil, ttl)}
}

func cacheKey(tenantID, ref string) string {
	return tenantID + "\x00" + ref
}

// Get devuelve una copia del producto cacheado.
func (c *Cache) Get(tenantID, ref string) (*entity.Product, bool) {
	if c == nil || c.lru == nil {
		return nil, false
	}
	p, ok := c.lru.Get(cacheKey(tenantID, ref))
	if !ok {
		return nil, false
	}
	return &p, true
}

// Add guarda el producto bajo la referencia usada para resolverlo.
func (c *Cache) Add(tenantID, ref string, p *entity.Product) {
	if c == nil || c.lru == nil || p == nil {
		return
	}
	c.lru.Add(cacheKey(tenantID, ref), *p)
}

// Purge invalida todas las entradas.
func (c *Cache) Purge() {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Purge()
}

// Len número de entradas vigentes.
func (c *Cache) Len() int {
	if c == nil || c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
