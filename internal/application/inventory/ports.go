package inventory

import (
	"context"

	"github.com/jhoicas/Inventario-clinica/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn retorna error (o el contexto vence) se hace rollback completo; nunca hay commit parcial.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		stockRepo repository.StockRepository,
		costRepo repository.CostRepository,
	) error) error
}
