package signals

import "testing"

func TestStreakBuildsUp(t *testing.T) {
	var s MaCountState
	for i := 0; i < 4; i++ {
		s.Update(101, 100)
	}
	if s.UpCount != 4 || s.DownCount != 0 || s.Pending != SideNone {
		t.Errorf("state = %+v, want upCount 4", s)
	}
	if s.Streak() != 4 {
		t.Errorf("streak = %d, want 4", s.Streak())
	}
}

func TestSingleContraryBarDoesNotBreakStreak(t *testing.T) {
	var s MaCountState
	for i := 0; i < 5; i++ {
		s.Update(101, 100)
	}

	// One wick below the MA arms the flip without touching counts.
	s.Update(99, 100)
	if s.UpCount != 5 || s.DownCount != 0 {
		t.Errorf("counts changed on single contrary bar: %+v", s)
	}
	if s.Pending != SideDown {
		t.Errorf("pending = %v, want down", s.Pending)
	}

	// Back above: streak resumes and pending clears.
	s.Update(102, 100)
	if s.UpCount != 6 || s.Pending != SideNone {
		t.Errorf("streak did not resume: %+v", s)
	}
}

func TestTwoContraryBarsFlipStreak(t *testing.T) {
	var s MaCountState
	for i := 0; i < 5; i++ {
		s.Update(101, 100)
	}

	s.Update(99, 100)
	s.Update(98, 100)

	if s.DownCount != 2 || s.UpCount != 0 || s.Pending != SideNone {
		t.Errorf("flip not committed: %+v", s)
	}
	if s.Streak() != -2 {
		t.Errorf("streak = %d, want -2", s.Streak())
	}
}

func TestFlatBarResetsEverything(t *testing.T) {
	var s MaCountState
	for i := 0; i < 3; i++ {
		s.Update(101, 100)
	}
	s.Update(99, 100) // arm pending

	s.Update(100, 100)
	if s.UpCount != 0 || s.DownCount != 0 || s.Pending != SideNone {
		t.Errorf("flat did not reset: %+v", s)
	}
}

func TestDownStreakMirrors(t *testing.T) {
	var s MaCountState
	for i := 0; i < 4; i++ {
		s.Update(99, 100)
	}
	s.Update(101, 100)
	if s.DownCount != 4 || s.Pending != SideUp {
		t.Errorf("state = %+v", s)
	}
	s.Update(101, 100)
	if s.UpCount != 2 || s.DownCount != 0 {
		t.Errorf("flip to up not committed: %+v", s)
	}
}

func TestAtMostOneCountNonzero(t *testing.T) {
	var s MaCountState
	closes := []float64{101, 99, 101, 99, 99, 101, 100, 99, 101, 101, 99}
	for _, c := range closes {
		s.Update(c, 100)
		if s.UpCount > 0 && s.DownCount > 0 {
			t.Fatalf("both counts nonzero: %+v", s)
		}
	}
}

func TestDominant(t *testing.T) {
	var s MaCountState
	if side, count := s.Dominant(); side != SideNone || count != 0 {
		t.Errorf("zero state dominant = %v/%d", side, count)
	}
	s.DownCount = 3
	if side, count := s.Dominant(); side != SideDown || count != 3 {
		t.Errorf("dominant = %v/%d, want down/3", side, count)
	}
}
