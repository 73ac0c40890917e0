package bmi

import (
	"errors"
	"math"
	"testing"
)

func TestCalculateExamples(t *testing.T) {
	tests := []struct {
		name     string
		height   float64
		weight   float64
		want     float64
		category Category
		text     string
	}{
		{name: "normal", height: 170, weight: 65, want: 22.49, category: Normal, text: "22.49"},
		{name: "obese", height: 160, weight: 80, want: 31.25, category: Obese, text: "31.25"},
		{name: "underweight", height: 180, weight: 50, want: 15.43, category: UnderWeight, text: "15.43"},
		{name: "overweight", height: 175, weight: 80, want: 26.12, category: OverWeight, text: "26.12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Calculate(tt.height, tt.weight)
			if !ok {
				t.Fatalf("expected success")
			}
			if res.Value != tt.want {
				t.Fatalf("bmi: got %v want %v", res.Value, tt.want)
			}
			if res.Category != tt.category {
				t.Fatalf("category: got %s want %s", res.Category, tt.category)
			}
			if res.String() != tt.text {
				t.Fatalf("text: got %s want %s", res.String(), tt.text)
			}
		})
	}
}

func TestCalculateMatchesFormula(t *testing.T) {
	for h := 100.0; h <= 220; h += 7.5 {
		for w := 30.0; w <= 150; w += 11.25 {
			res, ok := Calculate(h, w)
			if !ok {
				t.Fatalf("unexpected failure for h=%v w=%v", h, w)
			}
			m := h / 100
			want := math.Round(w/(m*m)*100) / 100
			if res.Value != want {
				t.Fatalf("h=%v w=%v: got %v want %v", h, w, res.Value, want)
			}
		}
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		bmi  float64
		want Category
	}{
		{bmi: 18.49, want: UnderWeight},
		{bmi: 18.5, want: Normal},
		{bmi: 24.99, want: Normal},
		{bmi: 25.0, want: OverWeight},
		{bmi: 29.99, want: OverWeight},
		{bmi: 30.0, want: Obese},
		{bmi: 0.01, want: UnderWeight},
		{bmi: 80, want: Obese},
	}
	for _, tt := range tests {
		if got := Classify(tt.bmi); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.bmi, got, tt.want)
		}
	}
}

func TestCategoryUsesUnroundedValue(t *testing.T) {
	// 24.996 округляется до 25.00, но категория остаётся «норма».
	height := 200.0
	weight := 24.996 * 4
	res, ok := Calculate(height, weight)
	if !ok {
		t.Fatalf("expected success")
	}
	if res.String() != "25.00" {
		t.Fatalf("unexpected rounding: %s", res.String())
	}
	if res.Category != Normal {
		t.Fatalf("category must use unrounded bmi, got %s", res.Category)
	}
}

func TestCalculateRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		height float64
		weight float64
	}{
		{name: "zero height", height: 0, weight: 60},
		{name: "zero weight", height: 170, weight: 0},
		{name: "negative height", height: -170, weight: 60},
		{name: "negative weight", height: 170, weight: -1},
		{name: "nan height", height: math.NaN(), weight: 60},
		{name: "nan weight", height: 170, weight: math.NaN()},
		{name: "inf weight", height: 170, weight: math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Calculate(tt.height, tt.weight)
			if ok {
				t.Fatalf("expected failure, got %+v", res)
			}
			if res != (Result{}) {
				t.Fatalf("failed calculation must not produce a result: %+v", res)
			}
		})
	}
}

func TestCalculateTextRejectsInvalid(t *testing.T) {
	tests := []struct {
		height string
		weight string
	}{
		{height: "", weight: "60"},
		{height: "170", weight: ""},
		{height: "abc", weight: "60"},
		{height: "1.2.3", weight: "60"},
		{height: "0", weight: "60"},
		{height: "170", weight: "-5"},
		{height: "NaN", weight: "60"},
	}
	for _, tt := range tests {
		_, err := CalculateText(tt.height, tt.weight)
		if !errors.Is(err, ErrInvalidMeasurement) {
			t.Errorf("CalculateText(%q, %q): expected ErrInvalidMeasurement, got %v", tt.height, tt.weight, err)
		}
	}
}

func TestCalculateIsIdempotent(t *testing.T) {
	m := Measurement{HeightCm: "170", WeightKg: "65", AgeYears: "30"}
	first, err := m.Calculate()
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := m.Calculate()
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first != second {
		t.Fatalf("results differ: %+v vs %+v", first, second)
	}
}

func TestCategoryLabel(t *testing.T) {
	if Normal.Label() != "普通体重" {
		t.Fatalf("unexpected label: %s", Normal.Label())
	}
	if Category("Unknown").Label() != "Unknown" {
		t.Fatalf("unknown category should fall back to its name")
	}
}
