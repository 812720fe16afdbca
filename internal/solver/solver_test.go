package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/raceline.report/internal/testutil"
)

func TestSolveCircleCurvatureLimited(t *testing.T) {
	c := testutil.CircleCenterline(200, 50)
	s := New(DefaultVehicleProfile(), DefaultConfig())
	res, err := s.Solve(context.Background(), c, 1.4)
	require.NoError(t, err)
	require.Len(t, res.Points, c.Len())

	// v = sqrt(mu*g*r) on a constant-radius circle.
	want := math.Sqrt(1.4 * Gravity * 50)
	for i, p := range res.Points {
		if math.Abs(p.TargetSpeed-want) > 0.1 {
			t.Fatalf("point %d: speed %v, want ~%v", i, p.TargetSpeed, want)
		}
	}
	require.InDelta(t, 26.2, res.Points[0].TargetSpeed, 0.1)

	wantLap := 2 * math.Pi * 50 / want
	require.InDelta(t, wantLap, res.LapTimeSec, 0.1)
}

func TestSolveWetSpeedScaling(t *testing.T) {
	c := testutil.CircleCenterline(200, 50)
	s := New(DefaultVehicleProfile(), DefaultConfig())
	dry, err := s.Solve(context.Background(), c, 1.4)
	require.NoError(t, err)
	wet, err := s.Solve(context.Background(), c, 0.7)
	require.NoError(t, err)

	scale := math.Sqrt(0.7 / 1.4)
	for i := range dry.Points {
		got := wet.Points[i].TargetSpeed / dry.Points[i].TargetSpeed
		if math.Abs(got-scale) > 1e-9 {
			t.Fatalf("point %d: wet/dry ratio %v, want %v", i, got, scale)
		}
	}
}

func TestSolveNeverExceedsLateralLimit(t *testing.T) {
	c := testutil.StadiumCenterline(300, 35, 2)
	s := New(DefaultVehicleProfile(), DefaultConfig())
	res, err := s.Solve(context.Background(), c, 1.1)
	require.NoError(t, err)

	aLat := 1.1 * Gravity
	for i, p := range res.Points {
		if p.TargetSpeed*p.TargetSpeed*math.Abs(p.Curvature) > aLat*(1+1e-9) {
			t.Fatalf("point %d: lateral accel %v exceeds %v",
				i, p.TargetSpeed*p.TargetSpeed*math.Abs(p.Curvature), aLat)
		}
	}
}

func TestSolveStraightsFasterThanCorners(t *testing.T) {
	c := testutil.StadiumCenterline(400, 35, 2)
	s := New(DefaultVehicleProfile(), DefaultConfig())
	res, err := s.Solve(context.Background(), c, 1.3)
	require.NoError(t, err)

	var vStraightMax, vCornerMin float64
	vCornerMin = math.Inf(1)
	for _, p := range res.Points {
		if math.Abs(p.Curvature) > 0.02 {
			vCornerMin = math.Min(vCornerMin, p.TargetSpeed)
		} else if math.Abs(p.Curvature) < 1e-4 {
			vStraightMax = math.Max(vStraightMax, p.TargetSpeed)
		}
	}
	require.Greater(t, vStraightMax, vCornerMin+5)
}

func TestSolveIdempotent(t *testing.T) {
	c := testutil.StadiumCenterline(300, 40, 2)
	s := New(DefaultVehicleProfile(), DefaultConfig())
	a, err := s.Solve(context.Background(), c, 1.2)
	require.NoError(t, err)
	b, err := s.Solve(context.Background(), c, 1.2)
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("repeat solve differs (-first +second):\n%s", diff)
	}
}

func TestSolveDegenerateTrack(t *testing.T) {
	s := New(DefaultVehicleProfile(), DefaultConfig())

	_, err := s.Solve(context.Background(), testutil.CircleCenterline(6, 50), 1.4)
	if !errors.Is(err, ErrDegenerateTrack) {
		t.Errorf("sparse track: got %v, want ErrDegenerateTrack", err)
	}

	_, err = s.Solve(context.Background(), testutil.CircleCenterline(100, 1), 1.4)
	if !errors.Is(err, ErrDegenerateTrack) {
		t.Errorf("short track: got %v, want ErrDegenerateTrack", err)
	}
}

func TestSolveInvalidGrip(t *testing.T) {
	s := New(DefaultVehicleProfile(), DefaultConfig())
	for _, mu := range []float64{0, -0.5} {
		_, err := s.Solve(context.Background(), testutil.CircleCenterline(200, 50), mu)
		if !errors.Is(err, ErrInvalidGrip) {
			t.Errorf("mu=%v: got %v, want ErrInvalidGrip", mu, err)
		}
	}
}

func TestSolveCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(DefaultVehicleProfile(), DefaultConfig())
	_, err := s.Solve(ctx, testutil.CircleCenterline(200, 50), 1.4)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestSolveLateralAdjustmentShortensCorners(t *testing.T) {
	c := testutil.CircleCenterline(300, 50)
	cfg := DefaultConfig()
	cfg.LateralAdjustment = true
	s := New(DefaultVehicleProfile(), cfg)
	res, err := s.Solve(context.Background(), c, 1.4)
	require.NoError(t, err)

	// The whole circle is a left-hand corner, so the adjusted line sits
	// inside the centerline and within the corridor.
	maxOffset := corridorFraction * cfg.TrackWidthM
	for i := 0; i < len(res.Points)-1; i++ {
		r := math.Hypot(res.Points[i].X, res.Points[i].Y)
		if r >= 50 {
			t.Fatalf("point %d: radius %v not inside the centerline", i, r)
		}
		if r < 50-maxOffset-1e-6 {
			t.Fatalf("point %d: radius %v outside the corridor", i, r)
		}
	}
	require.Greater(t, res.LapTimeSec, 0.0)
}
