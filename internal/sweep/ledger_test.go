package sweep

import (
	"testing"

	"github.com/ppiankov/menusweep/internal/extract"
	"github.com/ppiankov/menusweep/internal/model"
)

func TestLedger_RecordIsIdempotent(t *testing.T) {
	l := NewLedger()
	if l.Has("fries") {
		t.Fatal("Expected empty ledger")
	}

	l.Record("fries")
	l.Record("fries")

	if !l.Has("fries") {
		t.Error("Expected fries to be recorded")
	}
	if l.Len() != 1 {
		t.Errorf("Expected 1 key, got %d", l.Len())
	}
}

func TestLedger_Monotonic(t *testing.T) {
	l := NewLedger()
	prev := 0
	for _, key := range []string{"a", "b", "a", "c", "b", "c", "d"} {
		l.Record(key)
		if l.Len() < prev {
			t.Fatalf("Ledger shrank from %d to %d", prev, l.Len())
		}
		prev = l.Len()
	}
	if prev != 4 {
		t.Errorf("Expected 4 keys, got %d", prev)
	}
}

func testAssigner() *extract.Assigner {
	return extract.NewAssigner(extract.NewIndex([]extract.Boundary{
		{Position: 10, Name: "Burgers"},
		{Position: 50, Name: "Drinks"},
	}))
}

func TestCollector_AbsorbSameSampleTwice(t *testing.T) {
	c := NewCollector(testAssigner())
	sample := []extract.Candidate{
		{Key: "cheeseburger", Name: "Cheeseburger", Price: "$3.49", Position: 12},
		{Key: "coke", Name: "Coke", Position: 60},
	}

	if added := c.Absorb(sample); added != 2 {
		t.Fatalf("Expected 2 added, got %d", added)
	}
	before, _ := c.Menu().MarshalJSON()

	if added := c.Absorb(sample); added != 0 {
		t.Errorf("Expected 0 added on second absorb, got %d", added)
	}
	after, _ := c.Menu().MarshalJSON()

	if string(before) != string(after) {
		t.Errorf("Menu changed on repeated absorb:\nbefore %s\nafter  %s", before, after)
	}
	if c.Ledger().Len() != 2 {
		t.Errorf("Expected ledger of 2, got %d", c.Ledger().Len())
	}
}

func TestCollector_FirstSeenWins(t *testing.T) {
	c := NewCollector(testAssigner())
	c.Absorb([]extract.Candidate{{Key: "fries", Name: "Fries", Position: 15}})
	c.Absorb([]extract.Candidate{{Key: "fries", Name: "Fries", Price: "$2.19", MediaRef: "https://cdn/fries.png", Position: 70}})

	items := c.Menu().Items("Burgers")
	if len(items) != 1 || items[0].Price != "" || items[0].MediaRef != "" {
		t.Errorf("Expected first sighting to be kept unchanged, got %+v", items)
	}
	if len(c.Menu().Items("Drinks")) != 0 {
		t.Error("Expected no re-attribution to a later category")
	}
}

func TestCollector_SkipsEmptyKeys(t *testing.T) {
	c := NewCollector(nil)
	if added := c.Absorb([]extract.Candidate{{Name: "ghost"}}); added != 0 {
		t.Errorf("Expected candidate without identity to be ignored, got %d added", added)
	}
}

func TestSweeper_StepSizeJitter(t *testing.T) {
	s := &Sweeper{opts: Options{Step: 800}}
	if got := s.stepSize(); got != 800 {
		t.Errorf("Expected exact step without jitter, got %v", got)
	}

	s.opts.Jitter = 0.25
	for _, r := range []float64{0, 0.5, 0.999} {
		s.random = func() float64 { return r }
		got := s.stepSize()
		if got < 600 || got > 1000 {
			t.Errorf("random=%v: step %v outside jitter band", r, got)
		}
	}
}

func TestSweeper_StepSizeClampsJitter(t *testing.T) {
	s := &Sweeper{opts: Options{Step: 800, Jitter: 3}}
	s.random = func() float64 { return 0 }
	if got := s.stepSize(); got <= 0 {
		t.Errorf("Expected a forward step with oversized jitter, got %v", got)
	}

	opts := VerticalOptions(model.SweepConfig{VerticalStep: 800, StepJitter: 5})
	if opts.Jitter != maxJitter {
		t.Errorf("VerticalOptions jitter = %v, want %v", opts.Jitter, maxJitter)
	}
	opts = PanelOptions(model.SweepConfig{PanelStep: 800, StepJitter: -1})
	if opts.Jitter != 0 {
		t.Errorf("PanelOptions jitter = %v, want 0", opts.Jitter)
	}
}

func TestFlat(t *testing.T) {
	tests := []struct {
		name string
		prev reading
		next reading
		want bool
	}{
		{"window reaches end", reading{1000, 0, 800}, reading{1000, 200, 800}, true},
		{"moved and more below", reading{2000, 0, 800}, reading{2000, 800, 800}, false},
		{"stuck offset", reading{3000, 800, 800}, reading{3000, 800, 800}, true},
		{"stuck offset but grew", reading{3000, 800, 800}, reading{3800, 800, 800}, false},
	}
	for _, tt := range tests {
		if got := flat(tt.prev, tt.next); got != tt.want {
			t.Errorf("%s: flat = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestAxis(t *testing.T) {
	if !Vertical.IsVertical() || Vertical.String() != "vertical" {
		t.Errorf("Unexpected vertical axis %v", Vertical)
	}

	h := PanelHandle{XPath: "/html[1]/body[1]/div[2]", Ordinal: 4}
	a := PanelAxis(h)
	if a.IsVertical() {
		t.Error("Panel axis reported vertical")
	}
	if got, ok := a.Panel(); !ok || got != h {
		t.Errorf("Panel() = %v, %v", got, ok)
	}
	if a != PanelAxis(h) {
		t.Error("Expected equal axes for the same handle")
	}
	if a.String() != "panel:/html[1]/body[1]/div[2]" {
		t.Errorf("Unexpected String() %q", a.String())
	}
}
