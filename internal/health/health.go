// Package health derives body metrics and calorie burn from profile data.
package health

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultBMR is returned when a profile lacks the inputs for the formula.
const DefaultBMR = 1500.0

const (
	poundsToKg    = 0.453592
	inchesToCm    = 2.54
	secondsPerDay = 86400.0
)

// Sex selects the BMR coefficient set.
type Sex int

const (
	Female Sex = iota
	Male
)

// ParseSex maps a free-text gender field onto a coefficient set. Anything but
// "male" uses the female coefficients.
func ParseSex(s string) Sex {
	if strings.EqualFold(strings.TrimSpace(s), "male") {
		return Male
	}
	return Female
}

var (
	feetRe   = regexp.MustCompile(`(\d+)\s*'`)
	inchesRe = regexp.MustCompile(`(\d+)\s*"`)
)

// ParseHeight converts a stature field to centimetres. Imperial values are
// written as 5'10"; a bare number is taken as centimetres. Returns 0 when
// nothing can be parsed.
func ParseHeight(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	fm := feetRe.FindStringSubmatch(s)
	im := inchesRe.FindStringSubmatch(s)
	if fm == nil && im == nil {
		cm, err := strconv.ParseFloat(strings.TrimSuffix(s, "cm"), 64)
		if err != nil || cm < 0 {
			return 0
		}
		return cm
	}
	var feet, inches int
	if fm != nil {
		feet, _ = strconv.Atoi(fm[1])
	}
	if im != nil {
		inches, _ = strconv.Atoi(im[1])
	}
	return float64(feet*12+inches) * inchesToCm
}

// ParseWeight converts a weight field to kilograms. Values are pounds unless
// suffixed with "kg". Returns 0 when nothing can be parsed.
func ParseWeight(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	factor := poundsToKg
	if strings.HasSuffix(s, "kg") {
		factor = 1
		s = strings.TrimSuffix(s, "kg")
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "lbs"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v * factor
}

// BMR returns the revised Harris-Benedict basal metabolic rate in kcal/day.
func BMR(sex Sex, weightKg, heightCm float64, age int) float64 {
	if weightKg <= 0 || heightCm <= 0 || age <= 0 {
		return DefaultBMR
	}
	a := float64(age)
	if sex == Male {
		return 88.362 + 13.397*weightKg + 4.799*heightCm - 5.677*a
	}
	return 447.593 + 9.247*weightKg + 3.098*heightCm - 4.330*a
}

// BMI returns body-mass index rounded to one decimal, or 0 when inputs are missing.
func BMI(weightKg, heightCm float64) float64 {
	if weightKg <= 0 || heightCm <= 0 {
		return 0
	}
	m := heightCm / 100
	return math.Round(weightKg/(m*m)*10) / 10
}

// Category is a BMI classification.
type Category string

const (
	Unknown     Category = "Unknown"
	Underweight Category = "Underweight"
	Normal      Category = "Normal"
	Overweight  Category = "Overweight"
	Obese       Category = "Obese"
)

// BMICategory classifies a BMI value.
func BMICategory(bmi float64) Category {
	switch {
	case bmi <= 0:
		return Unknown
	case bmi < 18.5:
		return Underweight
	case bmi < 25:
		return Normal
	case bmi < 30:
		return Overweight
	default:
		return Obese
	}
}

// CaloriesPerSecond is the instantaneous burn for an activity with the given
// MET factor. An unknown BMR burns nothing.
func CaloriesPerSecond(bmr, met float64) float64 {
	if bmr <= 0 || met <= 0 {
		return 0
	}
	return met * bmr / secondsPerDay
}

// Metrics is the derived view of a profile.
type Metrics struct {
	WeightKg float64  `json:"weight_kg"`
	HeightCm float64  `json:"height_cm"`
	BMR      float64  `json:"bmr"`
	BMI      float64  `json:"bmi"`
	Category Category `json:"bmi_category"`
}

// FromProfile derives metrics from raw profile fields.
func FromProfile(gender, weight, height string, age int) Metrics {
	kg := ParseWeight(weight)
	cm := ParseHeight(height)
	bmi := BMI(kg, cm)
	return Metrics{
		WeightKg: kg,
		HeightCm: cm,
		BMR:      BMR(ParseSex(gender), kg, cm, age),
		BMI:      bmi,
		Category: BMICategory(bmi),
	}
}
