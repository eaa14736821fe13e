// Package region classifies sales regions into the capital city and the provinces.
package region

import "strings"

// Category is the ledger routing category of a region
type Category string

const (
	CategoryCapital  Category = "capital"
	CategoryProvince Category = "province"
)

// Regions is the fixed list of regions offered in the selection menu.
var Regions = []string{
	"Toshkent shahar",
	"Toshkent viloyati",
	"Andijon",
	"Buxoro",
	"Farg'ona",
	"Jizzax",
	"Xorazm",
	"Namangan",
	"Navoiy",
	"Qashqadaryo",
	"Qoraqalpog'iston",
	"Samarqand",
	"Sirdaryo",
	"Surxondaryo",
}

// capitalKeywords covers spellings and transliterations of Tashkent city.
var capitalKeywords = []string{
	"toshkent shahar",
	"toshkent shaxar",
	"toshkent sh",
	"toshkent city",
	"тошкент шаҳар",
	"ташкент",
}

// Classify maps a free-text region name to its category. It never fails;
// anything not recognised as the capital is a province.
func Classify(region string) Category {
	normalized := strings.ToLower(strings.TrimSpace(region))
	if normalized == "" {
		return CategoryProvince
	}
	for _, keyword := range capitalKeywords {
		if strings.Contains(normalized, keyword) {
			return CategoryCapital
		}
	}
	return CategoryProvince
}

// IsCapital is shorthand for Classify(region) == CategoryCapital
func IsCapital(region string) bool {
	return Classify(region) == CategoryCapital
}

// IsKnown reports whether region is one of the menu options
func IsKnown(region string) bool {
	for _, r := range Regions {
		if r == region {
			return true
		}
	}
	return false
}
