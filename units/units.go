// Package units implements the framework's unit system: a registry of
// named multiplicative conversion factors into the framework's canonical
// base units (length: mm, time: ns, temperature: K, energy: MeV, charge:
// e, voltage: MV, magnetic field: kT, angle: rad, fluence: neq) and a
// parser for simple compound unit expressions such as "V/um" or "mm/ns".
package units

import (
	"fmt"
	"strconv"
	"strings"
)

var registry = map[string]float64{}

func add(name string, value float64) {
	registry[strings.ToLower(name)] = value
}

func init() {
	// LENGTH (base: mm)
	add("nm", 1e-6)
	add("um", 1e-3)
	add("mm", 1)
	add("cm", 1e1)
	add("dm", 1e2)
	add("m", 1e3)
	add("km", 1e6)

	// TIME (base: ns)
	add("ps", 1e-3)
	add("ns", 1)
	add("us", 1e3)
	add("ms", 1e6)
	add("s", 1e9)

	// TEMPERATURE (base: K)
	add("K", 1)

	// ENERGY (base: MeV)
	add("eV", 1e-6)
	add("keV", 1e-3)
	add("MeV", 1)
	add("GeV", 1e3)

	// CHARGE (base: e)
	add("e", 1)
	add("ke", 1e3)
	add("fC", 1/1.602176634e-4)
	add("C", 1/1.602176634e-19)

	// VOLTAGE (base: MV)
	add("mV", 1e-9)
	add("V", 1e-6)
	add("kV", 1e-3)

	// MAGNETIC FIELD (base: kT)
	add("kT", 1)
	add("T", 1e-3)
	add("mT", 1e-6)

	// ANGLES (base: rad; these are pseudo-units by convention)
	add("deg", 3.14159265358979323846/180.0)
	add("rad", 1)
	add("mrad", 1e-3)

	// FLUENCE (base: neq, "1-MeV neutron equivalent")
	add("neq", 1)
}

// Add registers an additional unit or overrides an existing one with a
// multiplicative conversion factor into the framework's base unit for
// that quantity. Unit names are matched case-insensitively.
func Add(name string, value float64) {
	add(name, value)
}

// factor resolves a single unit symbol to its multiplicative factor.
func factor(symbol string) (float64, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return 1, nil
	}
	v, ok := registry[strings.ToLower(symbol)]
	if !ok {
		return 0, fmt.Errorf("units: unknown unit %q", symbol)
	}
	return v, nil
}

// compoundFactor resolves a compound unit expression of the form
// "num1*num2/den1*den2" (a single '/' separates numerator and
// denominator factors, each optionally chained with '*') to its overall
// multiplicative factor.
func compoundFactor(expr string) (float64, error) {
	num, den, hasDen := strings.Cut(expr, "/")
	numFactor := 1.0
	for _, part := range strings.Split(num, "*") {
		f, err := factor(part)
		if err != nil {
			return 0, err
		}
		numFactor *= f
	}
	if !hasDen {
		return numFactor, nil
	}
	denFactor := 1.0
	for _, part := range strings.Split(den, "*") {
		f, err := factor(part)
		if err != nil {
			return 0, err
		}
		denFactor *= f
	}
	if denFactor == 0 {
		return 0, fmt.Errorf("units: zero-valued denominator unit in %q", expr)
	}
	return numFactor / denFactor, nil
}

// Get returns the multiplicative factor that converts a value expressed
// in the named unit expression into the framework's base units.
func Get(unitExpr string) (float64, error) {
	return compoundFactor(unitExpr)
}

// Convert converts value, expressed in unitExpr, into the framework's
// base units.
func Convert(value float64, unitExpr string) (float64, error) {
	f, err := Get(unitExpr)
	if err != nil {
		return 0, err
	}
	return value * f, nil
}

// Parse parses a string of the form "<number><unit>" or "<number> <unit>"
// (e.g. "150V", "0.3 mm", "-60V/um") into the framework's base units. A
// bare number with no unit suffix is returned unconverted.
func Parse(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("units.Parse: empty input")
	}

	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.' || s[i] == 'e' || s[i] == 'E' ||
		((s[i] == '+' || s[i] == '-') && i > 0 && (s[i-1] == 'e' || s[i-1] == 'E'))) {
		i++
	}
	numPart := strings.TrimSpace(s[:i])
	unitPart := strings.TrimSpace(s[i:])

	if numPart == "" {
		return 0, fmt.Errorf("units.Parse: no numeric value in %q", s)
	}
	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("units.Parse: %w", err)
	}
	if unitPart == "" {
		return value, nil
	}
	return Convert(value, unitPart)
}
