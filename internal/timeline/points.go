package timeline

import (
	"time"

	"github.com/vanshika/chronos/internal/domain"
)

// Point is a rendered transaction marker.
type Point struct {
	Transaction domain.Transaction
	Index       int
	X, Y        float64
	Radius      float64
	Color       string
	Opacity     float64
	Revealed    bool
	Highlighted bool
}

// ConnectionMark is a rendered flow line between two consecutive points.
type ConnectionMark struct {
	domain.Connection
	X1, Y1, X2, Y2 float64
	StrokeWidth    float64
	Opacity        float64
	Revealed       bool
}

// Scales map time to x and amount to y. Y grows downward, so the largest
// amount sits at the top of the canvas.
type Scales struct {
	MinTime   time.Time
	MaxTime   time.Time
	MaxAmount float64
	Width     float64
	Height    float64
}

// NewScales derives the domain extrema from txs.
func NewScales(txs []domain.Transaction, width, height float64) Scales {
	s := Scales{Width: width, Height: height}
	for i, tx := range txs {
		if i == 0 || tx.Timestamp.Before(s.MinTime) {
			s.MinTime = tx.Timestamp
		}
		if i == 0 || tx.Timestamp.After(s.MaxTime) {
			s.MaxTime = tx.Timestamp
		}
		if a := tx.AmountFloat(); a > s.MaxAmount {
			s.MaxAmount = a
		}
	}
	return s
}

// X maps a timestamp into [0, Width]. A collapsed domain maps to the center.
func (s Scales) X(t time.Time) float64 {
	span := s.MaxTime.Sub(s.MinTime)
	if span <= 0 {
		return s.Width / 2
	}
	return float64(t.Sub(s.MinTime)) / float64(span) * s.Width
}

// Y maps an amount into [Height, 0].
func (s Scales) Y(amount float64) float64 {
	if s.MaxAmount <= 0 {
		return s.Height
	}
	return s.Height - amount/s.MaxAmount*s.Height
}

func buildPoints(txs []domain.Transaction, s Scales) []Point {
	points := make([]Point, len(txs))
	for i, tx := range txs {
		level := tx.Level()
		points[i] = Point{
			Transaction: tx,
			Index:       i,
			X:           s.X(tx.Timestamp),
			Y:           s.Y(tx.AmountFloat()),
			Radius:      level.Radius(),
			Color:       level.Color(),
			Opacity:     OpacityDim,
		}
	}
	return points
}

func buildConnectionMarks(conns []domain.Connection, s Scales) []ConnectionMark {
	marks := make([]ConnectionMark, len(conns))
	for i, c := range conns {
		width := 1.0
		if c.Suspicion > criticalConnectionMark {
			width = 3
		}
		marks[i] = ConnectionMark{
			Connection:  c,
			X1:          s.X(c.Source.Timestamp),
			Y1:          s.Y(c.Source.AmountFloat()),
			X2:          s.X(c.Target.Timestamp),
			Y2:          s.Y(c.Target.AmountFloat()),
			StrokeWidth: width,
			Opacity:     OpacityDim,
		}
	}
	return marks
}
