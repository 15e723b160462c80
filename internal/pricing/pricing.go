// Package pricing computes order totals and enforces the storefront's
// business rules. Prices always come from the server-side tables here; any
// client-supplied price is ignored.
package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/igorwgn/vitrine/internal/entity"
	"github.com/igorwgn/vitrine/pkg/errorbank"
)

var (
	uniformPrices = map[string]decimal.Decimal{
		"KIT":   decimal.New(9000, -2),
		"BLUSA": decimal.New(5500, -2),
	}
	mugStrapPrices = map[string]decimal.Decimal{
		"CANECA":  decimal.New(2500, -2),
		"TIRANTE": decimal.New(1000, -2),
		"KIT":     decimal.New(3000, -2),
	}
	snackPiecePrice = decimal.New(90, -2)
)

const (
	maxPrintNameLength = 14
	minSnackPieces     = 50
	fallbackChoices    = 3
)

// Draft is a validated, fully priced order ready for persistence.
type Draft struct {
	Family entity.ProductFamily
	Items  []entity.LineItem
	Total  decimal.Decimal
}

// UniformInput describes a single uniform purchase. ExistingNumber and
// FallbackNumbers are mutually exclusive: the customer either confirms the
// number of a shirt they already own or ranks three preferred numbers.
type UniformInput struct {
	SKU             string
	Model           string
	Size            string
	PrintName       string
	ExistingNumber  *int
	FallbackNumbers []int
}

// Uniform validates and prices a uniform order (one unit per order).
func Uniform(in UniformInput) (Draft, error) {
	sku := strings.ToUpper(strings.TrimSpace(in.SKU))
	price, ok := uniformPrices[sku]
	if !ok {
		return Draft{}, errorbank.BadRequest(fmt.Sprintf("tipo de uniforme inválido: %q", in.SKU))
	}
	if strings.TrimSpace(in.Model) == "" {
		return Draft{}, errorbank.BadRequest("modelo é obrigatório")
	}
	if strings.TrimSpace(in.Size) == "" {
		return Draft{}, errorbank.BadRequest("tamanho é obrigatório")
	}

	name := strings.ToUpper(strings.TrimSpace(in.PrintName))
	if name == "" {
		return Draft{}, errorbank.BadRequest("nome de impressão é obrigatório")
	}
	if len(name) > maxPrintNameLength {
		return Draft{}, errorbank.BadRequest(fmt.Sprintf("nome de impressão excede %d caracteres", maxPrintNameLength))
	}

	item := entity.LineItem{
		SKU:       sku,
		Quantity:  1,
		UnitPrice: price,
		Model:     strings.TrimSpace(in.Model),
		Size:      strings.ToUpper(strings.TrimSpace(in.Size)),
		PrintName: name,
	}

	switch {
	case in.ExistingNumber != nil && len(in.FallbackNumbers) > 0:
		return Draft{}, errorbank.BadRequest("informe o número existente ou as preferências, não ambos")
	case in.ExistingNumber != nil:
		if err := checkPrintNumber(*in.ExistingNumber); err != nil {
			return Draft{}, err
		}
		item.PrintNumber = in.ExistingNumber
	case len(in.FallbackNumbers) > 0:
		if len(in.FallbackNumbers) != fallbackChoices {
			return Draft{}, errorbank.BadRequest(fmt.Sprintf("informe %d números de preferência", fallbackChoices))
		}
		for _, n := range in.FallbackNumbers {
			if err := checkPrintNumber(n); err != nil {
				return Draft{}, err
			}
		}
		item.FallbackNumbers = in.FallbackNumbers
	default:
		return Draft{}, errorbank.BadRequest("informe o número existente ou as preferências de número")
	}

	return Draft{Family: entity.FamilyUniform, Items: []entity.LineItem{item}, Total: price}, nil
}

func checkPrintNumber(n int) error {
	if n < 0 || n > 99 {
		return errorbank.BadRequest("número de impressão deve estar entre 0 e 99")
	}
	return nil
}

// MugStrapInput describes a mug/lanyard purchase.
type MugStrapInput struct {
	SKU      string
	Quantity int
}

// MugStrap validates and prices a mug/lanyard order.
func MugStrap(in MugStrapInput) (Draft, error) {
	sku := strings.ToUpper(strings.TrimSpace(in.SKU))
	price, ok := mugStrapPrices[sku]
	if !ok {
		return Draft{}, errorbank.BadRequest(fmt.Sprintf("tipo de produto inválido: %q", in.SKU))
	}
	if in.Quantity <= 0 {
		return Draft{}, errorbank.BadRequest("quantidade deve ser maior que zero")
	}

	total := price.Mul(decimal.NewFromInt(int64(in.Quantity)))
	item := entity.LineItem{SKU: sku, Quantity: in.Quantity, UnitPrice: price}
	return Draft{Family: entity.FamilyMugStrap, Items: []entity.LineItem{item}, Total: total}, nil
}

// MaxFlavors is the cap on distinct snack flavors for a given piece count:
// three per full hundred, plus two more past each fifty. Below the minimum
// order the cap is zero.
func MaxFlavors(totalPieces int) int {
	if totalPieces < minSnackPieces {
		return 0
	}
	max := (totalPieces / 100) * 3
	if totalPieces%100 >= 50 {
		max += 2
	}
	return max
}

// SnackTray validates and prices a bulk snack tray from a flavor→quantity
// selection.
func SnackTray(flavors map[string]int) (Draft, error) {
	if len(flavors) == 0 {
		return Draft{}, errorbank.BadRequest("selecione ao menos um sabor")
	}
	for flavor, qty := range flavors {
		if strings.TrimSpace(flavor) == "" {
			return Draft{}, errorbank.BadRequest("sabor inválido")
		}
		if qty <= 0 {
			return Draft{}, errorbank.BadRequest(fmt.Sprintf("quantidade inválida para %q", flavor))
		}
	}

	totalPieces := lo.Sum(lo.Values(flavors))
	if totalPieces < minSnackPieces {
		return Draft{}, errorbank.BadRequest(fmt.Sprintf("pedido mínimo de %d unidades", minSnackPieces))
	}
	if limit := MaxFlavors(totalPieces); len(flavors) > limit {
		return Draft{}, errorbank.BadRequest(fmt.Sprintf("máximo de %d sabores para %d unidades", limit, totalPieces))
	}

	names := lo.Keys(flavors)
	sort.Strings(names)

	items := make([]entity.LineItem, 0, len(names))
	for _, flavor := range names {
		items = append(items, entity.LineItem{
			SKU:       "SALGADO",
			Flavor:    flavor,
			Quantity:  flavors[flavor],
			UnitPrice: snackPiecePrice,
		})
	}

	total := snackPiecePrice.Mul(decimal.NewFromInt(int64(totalPieces)))
	return Draft{Family: entity.FamilySnackTray, Items: items, Total: total}, nil
}
