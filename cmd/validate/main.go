// Command validate runs the built-in scale checks: the reference conversion
// scenarios, the conversion laws across every predefined scale, constructor
// failure modes, and the reading codec. It takes no arguments and exits
// non-zero when any check fails.
//
// Usage:
//
//	go run ./cmd/validate
package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/leit-etl/internal/domain"
)

const tolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	checks int
	errors []string
}

func (p *phase) check(ok bool, format string, args ...any) {
	p.checks++
	if !ok {
		p.errors = append(p.errors, fmt.Sprintf(format, args...))
	}
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	os.Exit(run())
}

func run() int {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	fmt.Println("=== Leit Scale Validation ===")
	fmt.Println()

	phases := []*phase{
		validateScenarios(),
		validateLaws(domain.DefaultTargets()),
		validateConstruction(),
		validateCodec(domain.DefaultRegistry()),
	}

	allPassed := true
	checks := 0
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		checks += p.checks
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Checks: %d across %d phases\n", checks, len(phases))
	printDocumentNotes()

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Reference scenarios ──

func validateScenarios() *phase {
	p := &phase{name: "Phase 1: Reference scenarios"}

	scenarios := []struct {
		value    float64
		from, to domain.LinearScale
		want     float64
	}{
		{16, domain.LeitV1, domain.Kelvin, 273.15},
		{0, domain.LeitV1, domain.Celsius, -273.15},
		{16, domain.LeitV1, domain.Fahrenheit, 32},
		{-10, domain.LeitV3, domain.Kelvin, 273.15},
		{116, domain.LeitV3, domain.Fahrenheit, 212},
		{0, domain.LeitV1, domain.LeitV3, -354.169},
	}
	for _, s := range scenarios {
		got := domain.Round(domain.Convert(s.value, s.from, s.to), 4)
		p.check(got == s.want, "%g %s -> %s: expected %g, got %g", s.value, s.from.Name(), s.to.Name(), s.want, got)
	}

	v := domain.Convert(0, domain.LeitV1, domain.LeitV3)
	p.check(math.Abs(domain.ToKelvin(v, domain.LeitV3)) < tolerance, "0 LeitV1 on LeitV3 is %g, which is not 0 K", v)
	p.check(domain.LeitV1.Slope() == domain.LeitV2.Slope() && domain.LeitV1.Offset() == domain.LeitV2.Offset(),
		"LeitV2 (%s) differs from LeitV1 (%s)", domain.LeitV2, domain.LeitV1)
	return p
}

// ── Phase 2: Conversion laws ──

var samples = []float64{-500, -273.15, -40, -10, 0, 0.5, 16, 32, 100, 116, 212, 1e6}

func validateLaws(scales []domain.LinearScale) *phase {
	p := &phase{name: "Phase 2: Conversion laws"}

	for _, a := range scales {
		p.check(a.Slope() > 0, "%s: slope %g is not positive", a.Name(), a.Slope())
		p.check(math.Abs(domain.ToKelvin(a.AbsoluteZero(), a)) < tolerance, "%s: absolute zero %g is not 0 K", a.Name(), a.AbsoluteZero())

		for _, v := range samples {
			p.check(domain.Convert(v, a, a) == v, "%s: identity fails at %g", a.Name(), v)

			k := domain.ToKelvin(v, a)
			p.check(approx(domain.FromKelvin(k, a), v), "%s: Kelvin round trip fails at %g", a.Name(), v)

			for _, b := range scales {
				there := domain.Convert(v, a, b)
				back := domain.Convert(there, b, a)
				p.check(approx(back, v), "%s -> %s -> %s: %g came back as %g", a.Name(), b.Name(), a.Name(), v, back)

				c := domain.NewScaleConverter(a, b)
				p.check(approx(c.Inverse().Convert(c.Convert(v)), v), "%s <-> %s: inverse converter fails at %g", a.Name(), b.Name(), v)
			}
		}
	}
	return p
}

func approx(got, want float64) bool {
	return math.Abs(got-want) <= tolerance*math.Max(1, math.Abs(want))
}

// ── Phase 3: Construction ──

func validateConstruction() *phase {
	p := &phase{name: "Phase 3: Scale construction"}

	bad := []struct {
		desc string
		err  error
		want error
	}{
		{"zero slope", errOf(domain.FromSlopeOffset(0, 0, "Flat")), domain.ErrInvalidScale},
		{"negative slope", errOf(domain.FromSlopeOffset(-1, 0, "Upside")), domain.ErrInvalidScale},
		{"NaN offset", errOf(domain.FromSlopeOffset(1, math.NaN(), "Lost")), domain.ErrInvalidScale},
		{"coincident calibration values", errOf(domain.FromCalibrationPoints(5, 273.15, 5, 373.15, "Same")), domain.ErrDegenerateCalibration},
		{"inverted calibration", errOf(domain.FromCalibrationPoints(0, 373.15, 100, 273.15, "Inverted")), domain.ErrInvalidScale},
		{"equal calibration Kelvin", errOf(domain.FromCalibrationPoints(0, 273.15, 100, 273.15, "Zero")), domain.ErrInvalidScale},
	}
	for _, b := range bad {
		p.check(errors.Is(b.err, b.want), "%s: expected %v, got %v", b.desc, b.want, b.err)
	}

	s, err := domain.FromCalibrationPoints(32, 273.15, 212, 373.15, "Fahrenheit")
	p.check(err == nil && approx(s.Slope(), domain.Fahrenheit.Slope()) && approx(s.Offset(), domain.Fahrenheit.Offset()),
		"rebuilt Fahrenheit %v (err %v) differs from %s", s, err, domain.Fahrenheit)
	return p
}

func errOf(_ domain.LinearScale, err error) error { return err }

// ── Phase 4: Reading codec ──

func validateCodec(reg *domain.Registry) *phase {
	p := &phase{name: "Phase 4: Reading codec"}
	observed := time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC)

	readings := []struct {
		payload string
		want    float64
	}{
		{`{"sensor_id":"v-1","reading":"16Lt","to":"K"}`, 273.15},
		{`{"sensor_id":"v-2","reading":"116 °LeitV3","to":"℉"}`, 212},
		{`{"sensor_id":"v-3","value":0,"unit":"leit","to":"celcius"}`, -273.15},
	}
	for _, r := range readings {
		raw := domain.RawEvent{Value: []byte(r.payload), Timestamp: observed}
		first, err := convert(raw, reg)
		if err != nil {
			p.check(false, "%s: %v", r.payload, err)
			continue
		}
		p.check(len(first.Conversions) == 1 && first.Conversions[0].Value == r.want,
			"%s: expected %g, got %v", r.payload, r.want, first.Conversions)

		second, err := convert(raw, reg)
		p.check(err == nil && second.ID == first.ID, "%s: ID %q is not deterministic (%q)", r.payload, first.ID, second.ID)
	}

	rejected := []struct {
		payload string
		want    error
	}{
		{`{"reading":"warm"}`, domain.ErrMalformedReading},
		{`{"reading":"3 Newton"}`, domain.ErrUnknownScale},
		{`{"reading":"-1 K"}`, domain.ErrBelowAbsoluteZero},
		{`{"value":1e309,"unit":"K"}`, domain.ErrMalformedReading},
	}
	for _, r := range rejected {
		_, err := convert(domain.RawEvent{Value: []byte(r.payload), Timestamp: observed}, reg)
		p.check(errors.Is(err, r.want), "%s: expected %v, got %v", r.payload, r.want, err)
	}
	return p
}

func convert(raw domain.RawEvent, reg *domain.Registry) (domain.ConvertedReading, error) {
	reading, err := domain.ParseRawEvent(raw, reg)
	if err != nil {
		return domain.ConvertedReading{}, err
	}
	return domain.ConvertReading(reading, domain.DefaultTargets(), domain.Policy{Decimals: 4})
}

// printDocumentNotes reports where the published Leit documents disagree with
// the calibration-point definitions used here.
func printDocumentNotes() {
	fmt.Println()
	fmt.Println("Document notes:")
	fmt.Printf("  LeitV1 boiling point: printed 22.4700209, calibrated %.7f\n", domain.Convert(212, domain.Fahrenheit, domain.LeitV1))
	fmt.Printf("  LeitV3 absolute zero: printed -276.69, calibrated %.4f\n", domain.LeitV3.AbsoluteZero())
}
