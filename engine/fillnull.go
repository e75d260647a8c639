package engine

import "fmt"

// FillNullKind selects how missing values are filled.
type FillNullKind uint8

const (
	FillBackward FillNullKind = iota
	FillForward
	FillMean
	FillMin
	FillMax
	FillZero
	FillOne
	FillMaxBound
	FillMinBound
)

var fillNullNames = [...]string{
	FillBackward: "Backward",
	FillForward:  "Forward",
	FillMean:     "Mean",
	FillMin:      "Min",
	FillMax:      "Max",
	FillZero:     "Zero",
	FillOne:      "One",
	FillMaxBound: "MaxBound",
	FillMinBound: "MinBound",
}

func (k FillNullKind) String() string {
	if int(k) < len(fillNullNames) {
		return fillNullNames[k]
	}
	return fmt.Sprintf("FillNullKind(%d)", uint8(k))
}

// ParseFillNullKind resolves a strategy name such as "Forward".
func ParseFillNullKind(name string) (FillNullKind, error) {
	for k, n := range fillNullNames {
		if n == name {
			return FillNullKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidStrategy, name)
}

// FillNullStrategy is a fill-null strategy. Backward and Forward take an
// optional limit on how many consecutive nulls they fill.
type FillNullStrategy struct {
	Kind     FillNullKind
	Limit    uint32
	HasLimit bool
}

// TakesLimit reports whether the kind carries an optional limit.
func (k FillNullKind) TakesLimit() bool {
	return k == FillBackward || k == FillForward
}

// Validate rejects limits on kinds that do not take one.
func (s FillNullStrategy) Validate() error {
	if int(s.Kind) >= len(fillNullNames) {
		return fmt.Errorf("%w: kind %d", ErrInvalidStrategy, s.Kind)
	}
	if s.HasLimit && !s.Kind.TakesLimit() {
		return fmt.Errorf("%w: %s takes no limit", ErrInvalidStrategy, s.Kind)
	}
	return nil
}
