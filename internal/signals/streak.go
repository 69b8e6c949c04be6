package signals

// Side marks which side of a moving average the close sits on.
type Side int

const (
	SideNone Side = iota
	SideUp
	SideDown
)

// String returns the chip spelling of the side.
func (s Side) String() string {
	switch s {
	case SideUp:
		return "上"
	case SideDown:
		return "下"
	default:
		return ""
	}
}

// MaCountState is the hysteresis streak counter for one MA period. At most
// one of UpCount/DownCount is nonzero. A single contrary bar does not break a
// streak: it only arms Pending, and the streak flips when the contrary side
// repeats on the next bar. This keeps chips from flickering on single wicks
// at crossover boundaries.
type MaCountState struct {
	UpCount   int  `json:"upCount"`
	DownCount int  `json:"downCount"`
	Pending   Side `json:"pendingSide"`
}

// Update advances the counter for one bar given its close and MA value.
func (s *MaCountState) Update(close, ma float64) {
	switch {
	case close > ma:
		s.advance(SideUp)
	case close < ma:
		s.advance(SideDown)
	default:
		// Exact touch resets everything.
		s.UpCount, s.DownCount, s.Pending = 0, 0, SideNone
	}
}

func (s *MaCountState) advance(side Side) {
	active, contrary := &s.UpCount, &s.DownCount
	if side == SideDown {
		active, contrary = contrary, active
	}

	switch {
	case *active > 0:
		*active++
		s.Pending = SideNone
	case *contrary > 0:
		if s.Pending == side {
			// Second consecutive contrary bar confirms the flip; both
			// flip bars count toward the new streak.
			*active = 2
			*contrary = 0
			s.Pending = SideNone
		} else {
			s.Pending = side
		}
	default:
		*active = 1
		s.Pending = SideNone
	}
}

// Streak returns the signed streak length: positive for up, negative for
// down, zero when flat.
func (s *MaCountState) Streak() int {
	if s.UpCount > 0 {
		return s.UpCount
	}
	return -s.DownCount
}

// Dominant returns the dominant side and its count.
func (s *MaCountState) Dominant() (Side, int) {
	if s.UpCount >= s.DownCount {
		if s.UpCount == 0 {
			return SideNone, 0
		}
		return SideUp, s.UpCount
	}
	return SideDown, s.DownCount
}
