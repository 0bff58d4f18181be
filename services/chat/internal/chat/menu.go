package chat

import (
	"strings"

	"github.com/brewchat/brewchat/pkg/pricing"
)

// Size and temperature vocabulary for order lines.
const (
	SizeSmall = "Small"
	SizeLarge = "Large"

	TempHot  = "Hot"
	TempIced = "Iced"
)

// Preparation defaults applied when the customer does not specify.
const (
	DefaultMilk      = "Whole"
	DefaultIceLevel  = "Regular"
	DefaultSweetness = "Regular"
)

// MenuItem describes one drink on the board: its small-size price, the
// large upcharge, and which preparation axes apply to it.
type MenuItem struct {
	BasePrice     float64
	LargeUpcharge float64
	DefaultMilk   string
	Sizeable      bool
	Iceable       bool
}

// The shop menu. Keys are canonical display names; lookup is
// case-insensitive.
var menuItems = map[string]MenuItem{
	"Espresso":   {BasePrice: 3.50, LargeUpcharge: 0.75, DefaultMilk: "None", Sizeable: false, Iceable: false},
	"Americano":  {BasePrice: 3.75, LargeUpcharge: 0.75, DefaultMilk: "None", Sizeable: true, Iceable: true},
	"Drip":       {BasePrice: 3.00, LargeUpcharge: 0.50, DefaultMilk: "None", Sizeable: true, Iceable: false},
	"Cold Brew":  {BasePrice: 4.50, LargeUpcharge: 0.75, DefaultMilk: "None", Sizeable: true, Iceable: true},
	"Latte":      {BasePrice: 5.25, LargeUpcharge: 1.00, DefaultMilk: DefaultMilk, Sizeable: true, Iceable: true},
	"Cappuccino": {BasePrice: 4.75, LargeUpcharge: 1.00, DefaultMilk: DefaultMilk, Sizeable: true, Iceable: false},
	"Mocha":      {BasePrice: 5.75, LargeUpcharge: 1.00, DefaultMilk: DefaultMilk, Sizeable: true, Iceable: true},
	"Chai":       {BasePrice: 4.95, LargeUpcharge: 0.75, DefaultMilk: DefaultMilk, Sizeable: true, Iceable: true},
	"Matcha":     {BasePrice: 5.50, LargeUpcharge: 1.00, DefaultMilk: DefaultMilk, Sizeable: true, Iceable: true},
	"Hot Tea":    {BasePrice: 3.25, LargeUpcharge: 0.50, DefaultMilk: "None", Sizeable: true, Iceable: false},
}

// Per-modification upcharges. Modifications not listed here are free.
var modificationPrices = map[string]float64{
	"oat milk":    0.75,
	"almond milk": 0.75,
	"soy milk":    0.50,
	"extra shot":  1.00,
	"vanilla":     0.50,
	"caramel":     0.50,
	"hazelnut":    0.50,
	"whipped":     0.50,
	"extra hot":   0.00,
	"half sweet":  0.00,
	"cold foam":   1.00,
	"lavender":    0.75,
	"honey":       0.50,
}

// LookupMenuItem finds a menu entry by name, case-insensitively.
func LookupMenuItem(name string) (MenuItem, bool) {
	trimmed := strings.TrimSpace(name)
	if item, ok := menuItems[trimmed]; ok {
		return item, true
	}
	for key, item := range menuItems {
		if strings.EqualFold(key, trimmed) {
			return item, true
		}
	}
	return MenuItem{}, false
}

// ModificationPrice returns the upcharge for one modification string.
func ModificationPrice(mod string) float64 {
	return modificationPrices[strings.ToLower(strings.TrimSpace(mod))]
}

// NormalizeLine fills defaults and prices on a draft line in place. The model
// often reports only what the customer said; everything it omits gets the
// menu's defaults so downstream pricing and the kitchen ticket are complete.
// Lines naming drinks not on the menu keep whatever pricing the model
// reported, as long as the draft validates downstream.
func NormalizeLine(line *DraftLine) {
	item, onMenu := LookupMenuItem(line.Name)

	if line.Quantity < 1 {
		line.Quantity = 1
	}

	if onMenu {
		if line.Size == "" && item.Sizeable {
			line.Size = SizeSmall
		}
		if line.Temperature == "" {
			line.Temperature = TempHot
		}
		if line.Milk == "" {
			line.Milk = item.DefaultMilk
		}
		if line.BasePrice == 0 {
			line.BasePrice = item.BasePrice
			if line.Size == SizeLarge {
				line.BasePrice = pricing.Round2(item.BasePrice + item.LargeUpcharge)
			}
		}
	}

	if line.Temperature == TempIced && line.IceLevel == "" {
		line.IceLevel = DefaultIceLevel
	}
	if line.Sweetness == "" {
		line.Sweetness = DefaultSweetness
	}

	if line.ModificationsPrice == 0 && len(line.Modifications) > 0 {
		sum := 0.0
		for _, mod := range line.Modifications {
			sum += ModificationPrice(mod)
		}
		line.ModificationsPrice = pricing.Round2(sum)
	}

	line.TotalPrice = pricing.Round2(line.BasePrice + line.ModificationsPrice)
}
