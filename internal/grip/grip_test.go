package grip

import (
	"math"
	"testing"
)

func weatherAt(cat Category, trackTemp float64) WeatherCondition {
	return WeatherCondition{AirTemp: 25, TrackTemp: trackTemp, Category: cat}
}

func TestEffectiveMuAtOptimum(t *testing.T) {
	cases := []struct {
		cat  Category
		want float64
	}{
		{CategoryDry, 1.40},
		{CategoryDamp, 1.05},
		{CategoryIntermediate, 0.90},
		{CategoryWet, 0.70},
	}
	for _, c := range cases {
		got := EffectiveMu(weatherAt(c.cat, OptimalTrackTemp), 1.40)
		if math.Abs(got-c.want) > 1e-12 {
			t.Errorf("%s at optimum: mu = %v, want %v", c.cat, got, c.want)
		}
	}
}

func TestEffectiveMuMonotoneInTempDeviation(t *testing.T) {
	for _, cat := range []Category{CategoryDry, CategoryDamp, CategoryIntermediate, CategoryWet} {
		prev := math.Inf(1)
		for dev := 0.0; dev <= 160; dev += 5 {
			above := EffectiveMu(weatherAt(cat, OptimalTrackTemp+dev), 1.40)
			below := EffectiveMu(weatherAt(cat, OptimalTrackTemp-dev), 1.40)
			if math.Abs(above-below) > 1e-12 {
				t.Fatalf("%s: asymmetric penalty at dev %v: %v vs %v", cat, dev, above, below)
			}
			if above > prev+1e-12 {
				t.Fatalf("%s: mu increased with larger deviation at %v: %v > %v", cat, dev, above, prev)
			}
			prev = above
		}
	}
}

func TestEffectiveMuNeverZero(t *testing.T) {
	mu := EffectiveMu(weatherAt(CategoryWet, 300), 1.40)
	if mu <= 0 {
		t.Fatalf("mu = %v, want > 0", mu)
	}
	// Floor: never below TempFactorFloor of the category nominal.
	if mu < NominalWetMu*TempFactorFloor-1e-12 {
		t.Fatalf("mu = %v below floor %v", mu, NominalWetMu*TempFactorFloor)
	}
}

func TestEffectiveMuNeverAboveNominal(t *testing.T) {
	for temp := -40.0; temp <= 200; temp += 10 {
		mu := EffectiveMu(weatherAt(CategoryDry, temp), 1.40)
		if mu > NominalDryMu+1e-12 {
			t.Fatalf("mu = %v above nominal at %v C", mu, temp)
		}
	}
}

func TestCategoryFromRainfall(t *testing.T) {
	cases := []struct {
		rain float64
		want Category
	}{
		{0, CategoryDry},
		{0.05, CategoryDry},
		{0.5, CategoryDamp},
		{5, CategoryIntermediate},
		{25, CategoryWet},
	}
	for _, c := range cases {
		w := WeatherCondition{RainfallMmHr: c.rain, TrackTemp: OptimalTrackTemp}
		if got := w.EffectiveCategory(); got != c.want {
			t.Errorf("rainfall %v: category %q, want %q", c.rain, got, c.want)
		}
	}
}

func TestExplicitCategoryIsAuthoritative(t *testing.T) {
	// Heavy rainfall but explicit dry category: category wins.
	w := WeatherCondition{RainfallMmHr: 25, TrackTemp: OptimalTrackTemp, Category: CategoryDry}
	if got := w.EffectiveCategory(); got != CategoryDry {
		t.Fatalf("explicit category overridden: got %q", got)
	}
}

func TestTrackTempDerivedFromAir(t *testing.T) {
	w := WeatherCondition{AirTemp: 30, TrackTemp: math.NaN()}
	if got := w.EffectiveTrackTemp(); got != 40 {
		t.Fatalf("derived track temp = %v, want 40", got)
	}
}

func TestDryWetRatio(t *testing.T) {
	// The dry→wet step scales mu by 0.5 at any fixed temperature, which
	// gives the sqrt(0.5) speed scaling the solver tests rely on.
	for _, temp := range []float64{60, 85, 110} {
		dry := EffectiveMu(weatherAt(CategoryDry, temp), 1.40)
		wet := EffectiveMu(weatherAt(CategoryWet, temp), 1.40)
		if math.Abs(wet/dry-0.5) > 1e-12 {
			t.Errorf("wet/dry ratio at %vC = %v, want 0.5", temp, wet/dry)
		}
	}
}
