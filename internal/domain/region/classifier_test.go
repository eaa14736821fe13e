package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		region string
		want   Category
	}{
		{"menu capital", "Toshkent shahar", CategoryCapital},
		{"misspelling", "toshkent shaxar", CategoryCapital},
		{"abbreviation", "Toshkent sh.", CategoryCapital},
		{"english", "Toshkent City", CategoryCapital},
		{"cyrillic uzbek", "Тошкент шаҳар", CategoryCapital},
		{"russian", "г. Ташкент", CategoryCapital},
		{"padded upper case", "  TOSHKENT SHAHAR  ", CategoryCapital},
		{"embedded in address", "Chilonzor, Toshkent shahar", CategoryCapital},
		{"tashkent province", "Toshkent viloyati", CategoryProvince},
		{"province", "Andijon", CategoryProvince},
		{"empty", "", CategoryProvince},
		{"blank", "   ", CategoryProvince},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.region))
		})
	}
}

func TestRegions(t *testing.T) {
	assert.Len(t, Regions, 14)

	capitals := 0
	for _, r := range Regions {
		if IsCapital(r) {
			capitals++
		}
	}
	assert.Equal(t, 1, capitals, "only Toshkent shahar routes to the capital ledger")
}

func TestIsKnown(t *testing.T) {
	assert.True(t, IsKnown("Qoraqalpog'iston"))
	assert.False(t, IsKnown("andijon"))
	assert.False(t, IsKnown(""))
}
