package postgres

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaDDL string

// Schema devuelve el DDL del esquema (idempotente, CREATE ... IF NOT EXISTS).
func Schema() string { return schemaDDL }

// EnsureSchema aplica el DDL. Pensado para arranque en desarrollo; en producción se usan migraciones.
func EnsureSchema(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("aplicar esquema: %w", err)
	}
	return nil
}
