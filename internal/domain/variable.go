package domain

// LevelMatch selects how an index record's level field is compared.
type LevelMatch int

const (
	// MatchExact requires the level field to equal the configured level.
	MatchExact LevelMatch = iota
	// MatchPrefix accepts level fields that carry extra qualifiers after the
	// configured level, e.g. "surface:anl".
	MatchPrefix
)

// Variable is one selectable physical quantity of a model.
type Variable struct {
	Key             string     `json:"key"`
	Name            string     `json:"name"`
	ProductCode     string     `json:"product_code"`
	Level           string     `json:"level"`
	Match           LevelMatch `json:"-"`
	Unit            string     `json:"unit"`
	MinForecastHour int        `json:"min_forecast_hour"`
	Scale           ColorScale `json:"scale"`
	Display         Display    `json:"display"`
}

// DisplayScale returns the variable's colour scale wrapped for display-unit lookups.
func (v Variable) DisplayScale() DisplayScale {
	return DisplayScale{Scale: v.Scale, Display: v.Display}
}

// DisplayUnit is the unit shown on the legend.
func (v Variable) DisplayUnit() string {
	if v.Display.Unit != "" {
		return v.Display.Unit
	}
	return v.Unit
}
