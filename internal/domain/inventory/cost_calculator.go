// Package inventory contiene los servicios de dominio de valorización de inventario.
package inventory

import "github.com/shopspring/decimal"

// CostDecimals decimales con los que se guarda el costo promedio.
const CostDecimals = 6

// CostCalculator implementa el costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((CantValorizada * CostoActual) + CostoTotalEntrada) / (CantValorizada + CantEntrada)
// Si la cantidad valorizada previa es <= 0 el promedio anterior no aporta: se usa el costo unitario de la entrada.
func CostCalculator(cantValorizada, costoActual, cantEntrada, costoTotalEntrada decimal.Decimal) decimal.Decimal {
	if !cantEntrada.IsPositive() {
		return costoActual
	}
	if !cantValorizada.IsPositive() {
		return costoTotalEntrada.Div(cantEntrada).Round(CostDecimals)
	}
	sum := cantValorizada.Add(cantEntrada)
	num := cantValorizada.Mul(costoActual).Add(costoTotalEntrada)
	return num.Div(sum).Round(CostDecimals)
}

// Valuation costo atribuido a un consumo: costo promedio por cantidad, sin redondeo adicional.
func Valuation(avgCost, qty decimal.Decimal) decimal.Decimal {
	return avgCost.Mul(qty)
}
