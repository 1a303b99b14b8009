// Package seed lee el catálogo clínico desde CSV (nombre;categoría;unidad) para cargarlo
// en el store en memoria o generar el script SQL de PostgreSQL.
package seed

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Inventario-clinica/internal/application/catalog"
	"github.com/jhoicas/Inventario-clinica/internal/domain/entity"
)

// namespace de los IDs deterministas de producto (uuid v5 sobre organización + nombre normalizado).
var namespace = uuid.MustParse("6f1c2a8e-4b1d-4d7e-9a52-3c8f0e7b5d21")

// Row fila del catálogo.
type Row struct {
	Name     string
	Category string
	Unit     string
	Line     int
}

var categories = map[string]string{
	"allergen":        entity.CategoryAllergen,
	"alergeno":        entity.CategoryAllergen,
	"diluent":         entity.CategoryDiluent,
	"diluyente":       entity.CategoryDiluent,
	"medication":      entity.CategoryMedication,
	"medicamento":     entity.CategoryMedication,
	"treatment-label": entity.CategoryTreatmentLabel,
	"etiqueta":        entity.CategoryTreatmentLabel,
}

var units = map[string]string{
	"ml":     entity.UnitML,
	"unit":   entity.UnitCount,
	"unidad": entity.UnitCount,
}

// ReadCatalog lee el CSV. Acepta UTF-8 o ISO-8859-1 (exportaciones de Excel) y
// un encabezado opcional. Filas con nombre normalizado repetido se descartan (gana la primera).
func ReadCatalog(r io.Reader) ([]Row, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("leer catálogo: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	var src io.Reader = bytes.NewReader(raw)
	if !utf8.Valid(raw) {
		src = transform.NewReader(src, charmap.ISO8859_1.NewDecoder())
	}

	cr := csv.NewReader(src)
	cr.Comma = ';'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []Row
	seen := make(map[string]bool)
	for first := true; ; first = false {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("leer catálogo: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("línea %d: se esperan nombre;categoría[;unidad]", line)
		}
		if first && isHeader(rec[0]) {
			continue
		}
		row, err := parseRow(rec, line)
		if err != nil {
			return nil, err
		}
		key := catalog.Normalize(row.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, row)
	}
	return rows, nil
}

func isHeader(first string) bool {
	h := catalog.Normalize(first)
	return h == "name" || h == "nombre"
}

func parseRow(rec []string, line int) (Row, error) {
	name := strings.TrimSpace(rec[0])
	if catalog.Normalize(name) == "" {
		return Row{}, fmt.Errorf("línea %d: nombre vacío", line)
	}
	category, ok := categories[catalog.Normalize(rec[1])]
	if !ok {
		return Row{}, fmt.Errorf("línea %d: categoría desconocida %q", line, rec[1])
	}
	unit := entity.UnitML
	if category == entity.CategoryTreatmentLabel {
		unit = entity.UnitCount
	}
	if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
		if unit, ok = units[catalog.Normalize(rec[2])]; !ok {
			return Row{}, fmt.Errorf("línea %d: unidad desconocida %q", line, rec[2])
		}
	}
	return Row{Name: name, Category: category, Unit: unit, Line: line}, nil
}

// ProductID ID estable del producto: el mismo catálogo reimportado produce los mismos IDs.
func ProductID(tenantID, name string) string {
	return uuid.NewSHA1(namespace, []byte(tenantID+"/"+catalog.Normalize(name))).String()
}

// Products convierte las filas en productos de la organización.
func Products(tenantID string, rows []Row) []entity.Product {
	out := make([]entity.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, entity.Product{
			ID:          ProductID(tenantID, r.Name),
			TenantID:    tenantID,
			Name:        r.Name,
			Category:    r.Category,
			UnitMeasure: r.Unit,
		})
	}
	return out
}

// WriteSQL escribe los INSERT idempotentes para la tabla products.
func WriteSQL(w io.Writer, tenantID string, rows []Row) error {
	if _, err := fmt.Fprintf(w, "-- Catálogo clínico de %s (%d productos)\n", tenantID, len(rows)); err != nil {
		return err
	}
	for _, p := range Products(tenantID, rows) {
		_, err := fmt.Fprintf(w,
			"INSERT INTO products (id, tenant_id, name, normalized_name, category, unit_measure)\n"+
				"VALUES ('%s', '%s', '%s', '%s', '%s', '%s')\n"+
				"ON CONFLICT (tenant_id, normalized_name) DO NOTHING;\n",
			p.ID, escapeSQL(tenantID), escapeSQL(p.Name), escapeSQL(catalog.Normalize(p.Name)), p.Category, p.UnitMeasure)
		if err != nil {
			return err
		}
	}
	return nil
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
