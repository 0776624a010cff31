package logging

import "testing"

func TestProgressSamplerQuarters(t *testing.T) {
	s := NewProgressSampler(4)
	var logged []int
	for done := 1; done <= 12; done++ {
		if s.Observe(done, 12, "m1") {
			logged = append(logged, done)
		}
	}
	want := []int{1, 3, 6, 9, 12}
	if len(logged) != len(want) {
		t.Fatalf("logged %v, want %v", logged, want)
	}
	for i := range want {
		if logged[i] != want[i] {
			t.Fatalf("logged %v, want %v", logged, want)
		}
	}
}

func TestProgressSamplerModelChange(t *testing.T) {
	s := NewProgressSampler(2)
	if !s.Observe(1, 10, "gemini-2.5-flash") {
		t.Fatal("first chunk should log")
	}
	if s.Observe(2, 10, " gemini-2.5-flash ") {
		t.Fatal("same model inside a step should be suppressed")
	}
	if !s.Observe(3, 10, "gemini-2.5-pro") {
		t.Fatal("model fallback should log")
	}
	if s.Observe(4, 10, "gemini-2.5-pro") {
		t.Fatal("steady model should be suppressed again")
	}
}

func TestProgressSamplerNilAndDefaults(t *testing.T) {
	var s *ProgressSampler
	if !s.Observe(1, 2, "") {
		t.Fatal("nil sampler should always log")
	}
	if NewProgressSampler(0).steps != 4 {
		t.Fatal("expected default of 4 steps")
	}
	if !NewProgressSampler(4).Observe(0, 0, "") {
		t.Fatal("unknown totals should log")
	}
}
