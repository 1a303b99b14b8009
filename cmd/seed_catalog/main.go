// seed_catalog genera el script SQL que carga el catálogo clínico de una organización
// a partir de un CSV nombre;categoría;unidad (UTF-8 o ISO-8859-1).
//
// Uso: go run ./cmd/seed_catalog -tenant org-1 [-out ruta.sql] catalogo.csv
// Por defecto escribe internal/infrastructure/postgres/seeds/<tenant>_catalog.sql
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jhoicas/Inventario-clinica/internal/infrastructure/seed"
)

func main() {
	tenantID := flag.String("tenant", "", "organización dueña del catálogo")
	outPath := flag.String("out", "", "archivo SQL de salida")
	flag.Parse()

	if *tenantID == "" || flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "uso: seed_catalog -tenant <org> [-out archivo.sql] catalogo.csv")
		os.Exit(2)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, err := seed.ReadCatalog(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer catálogo: %v\n", err)
		os.Exit(1)
	}

	if *outPath == "" {
		*outPath = filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "seeds", *tenantID+"_catalog.sql")
	}
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Crear directorio: %v\n", err)
		os.Exit(1)
	}
	out, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := seed.WriteSQL(out, *tenantID, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d productos\n", *outPath, len(rows))
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
