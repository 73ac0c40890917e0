package bmi

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidMeasurement возвращается, если рост или вес не число либо не больше нуля.
var ErrInvalidMeasurement = errors.New("invalid height or weight")

// Category весовая категория по шкале ИМТ.
type Category string

const (
	UnderWeight Category = "UnderWeight"
	Normal      Category = "Normal"
	OverWeight  Category = "OverWeight"
	Obese       Category = "Obese"
)

var categoryLabels = map[Category]string{
	UnderWeight: "低体重",
	Normal:      "普通体重",
	OverWeight:  "体重過多",
	Obese:       "肥満",
}

// Label возвращает название категории для пользователя.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Result значение ИМТ, округлённое до двух знаков, и категория.
type Result struct {
	Value    float64  `json:"value"`
	Category Category `json:"category"`
}

func (r Result) String() string {
	return strconv.FormatFloat(r.Value, 'f', 2, 64)
}

// Classify относит неокруглённый ИМТ к категории. Интервалы полуоткрытые:
// [18.5, 25): норма, [25, 30): избыток.
func Classify(bmi float64) Category {
	switch {
	case bmi < 18.5:
		return UnderWeight
	case bmi < 25:
		return Normal
	case bmi < 30:
		return OverWeight
	default:
		return Obese
	}
}

// Calculate считает ИМТ по росту в сантиметрах и весу в килограммах.
// ok == false, если любое из значений NaN, бесконечно или не больше нуля.
func Calculate(heightCm, weightKg float64) (Result, bool) {
	if !valid(heightCm) || !valid(weightKg) {
		return Result{}, false
	}
	meters := heightCm / 100
	value := weightKg / (meters * meters)
	if !valid(value) {
		return Result{}, false
	}
	return Result{
		Value:    math.Round(value*100) / 100,
		Category: Classify(value),
	}, true
}

// CalculateText разбирает строки, введённые пользователем, и считает ИМТ.
func CalculateText(height, weight string) (Result, error) {
	h, err := strconv.ParseFloat(strings.TrimSpace(height), 64)
	if err != nil {
		return Result{}, ErrInvalidMeasurement
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(weight), 64)
	if err != nil {
		return Result{}, ErrInvalidMeasurement
	}
	res, ok := Calculate(h, w)
	if !ok {
		return Result{}, ErrInvalidMeasurement
	}
	return res, nil
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Measurement ввод пользователя в том виде, в каком он набран (после Normalize).
type Measurement struct {
	HeightCm string `json:"height_cm"`
	WeightKg string `json:"weight_kg"`
	AgeYears string `json:"age_years"`
}

// Normalized возвращает копию с отфильтрованными полями.
func (m Measurement) Normalized() Measurement {
	return Measurement{
		HeightCm: Normalize(m.HeightCm),
		WeightKg: Normalize(m.WeightKg),
		AgeYears: Normalize(m.AgeYears),
	}
}

func (m Measurement) Calculate() (Result, error) {
	return CalculateText(m.HeightCm, m.WeightKg)
}
