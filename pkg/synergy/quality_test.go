package synergy

import (
	"math"
	"testing"
)

// =============================================================================
// Quality Tests
// =============================================================================

func TestSynergy_Quality(t *testing.T) {
	t.Run("weighted blend", func(t *testing.T) {
		s := &Synergy{Confidence: 0.9, ImpactScore: 0.6}
		want := 0.6*0.9 + 0.4*0.6
		if got := s.Quality(); math.Abs(got-want) > 1e-9 {
			t.Errorf("Quality = %v, want %v", got, want)
		}
	})

	t.Run("zero fields contribute nothing", func(t *testing.T) {
		s := &Synergy{Confidence: 0.5}
		want := 0.6 * 0.5
		if got := s.Quality(); math.Abs(got-want) > 1e-9 {
			t.Errorf("Quality = %v, want %v", got, want)
		}
	})

	t.Run("nil synergy scores zero", func(t *testing.T) {
		var s *Synergy
		if s.Quality() != 0 {
			t.Error("nil Quality should be 0")
		}
	})
}

// =============================================================================
// TopByQuality Tests
// =============================================================================

func TestTopByQuality(t *testing.T) {
	t.Run("small input returned unchanged", func(t *testing.T) {
		in := []*Synergy{
			{SynergyID: "low", Confidence: 0.1},
			{SynergyID: "high", Confidence: 0.9},
		}

		out := TopByQuality(in, 10)

		// Same backing slice, original order preserved, no sort paid.
		if &out[0] != &in[0] {
			t.Error("expected input slice returned unchanged")
		}
		if out[0].SynergyID != "low" || out[1].SynergyID != "high" {
			t.Error("order should be untouched when len <= limit")
		}
	})

	t.Run("exact limit returned unchanged", func(t *testing.T) {
		in := []*Synergy{
			{SynergyID: "a", Confidence: 0.1},
			{SynergyID: "b", Confidence: 0.9},
		}
		out := TopByQuality(in, 2)
		if len(out) != 2 || out[0].SynergyID != "a" {
			t.Error("len == limit should return input unchanged")
		}
	})

	t.Run("reduces to highest quality", func(t *testing.T) {
		in := []*Synergy{
			{SynergyID: "worst", Confidence: 0.1, ImpactScore: 0.1},
			{SynergyID: "best", Confidence: 0.9, ImpactScore: 0.9},
			{SynergyID: "mid", Confidence: 0.5, ImpactScore: 0.5},
		}

		out := TopByQuality(in, 2)

		if len(out) != 2 {
			t.Fatalf("len = %d, want 2", len(out))
		}
		if out[0].SynergyID != "best" || out[1].SynergyID != "mid" {
			t.Errorf("got [%s %s], want [best mid]", out[0].SynergyID, out[1].SynergyID)
		}
	})

	t.Run("input left unsorted", func(t *testing.T) {
		in := []*Synergy{
			{SynergyID: "worst", Confidence: 0.1},
			{SynergyID: "best", Confidence: 0.9},
			{SynergyID: "mid", Confidence: 0.5},
		}

		TopByQuality(in, 1)

		if in[0].SynergyID != "worst" || in[2].SynergyID != "mid" {
			t.Error("TopByQuality must not reorder the caller's slice")
		}
	})

	t.Run("ties keep input order", func(t *testing.T) {
		in := []*Synergy{
			{SynergyID: "first", Confidence: 0.5},
			{SynergyID: "second", Confidence: 0.5},
			{SynergyID: "third", Confidence: 0.5},
			{SynergyID: "loser", Confidence: 0.1},
		}

		out := TopByQuality(in, 3)

		want := []string{"first", "second", "third"}
		for i, id := range want {
			if out[i].SynergyID != id {
				t.Errorf("out[%d] = %s, want %s", i, out[i].SynergyID, id)
			}
		}
	})

	t.Run("negative limit yields empty", func(t *testing.T) {
		in := []*Synergy{{SynergyID: "a"}}
		if out := TopByQuality(in, -1); len(out) != 0 {
			t.Errorf("len = %d, want 0", len(out))
		}
	})
}

// =============================================================================
// Round2 Tests
// =============================================================================

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.556, 0.56},
		{0.554, 0.55},
		{(0.6 + 0.5) / 2, 0.55},
		{0.0, 0.0},
		{1.0, 1.0},
		{0.125, 0.13},
	}

	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkTopByQuality(b *testing.B) {
	in := make([]*Synergy, 5000)
	for i := range in {
		in[i] = &Synergy{
			Confidence:  float64(i%100) / 100,
			ImpactScore: float64((i*7)%100) / 100,
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		TopByQuality(in, 1000)
	}
}
