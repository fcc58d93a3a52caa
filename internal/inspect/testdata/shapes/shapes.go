package shapes

type Shape interface {
	area() float64
}

type Circle struct{ Radius float64 }

func (c *Circle) area() float64 { return 3 * c.Radius * c.Radius }

type Square struct{ Side float64 }

func (s Square) area() float64 { return s.Side * s.Side }

type Triangle struct{ Base, Height float64 }

func (t *Triangle) area() float64 { return t.Base * t.Height / 2 }

// Describe covers every implementer.
func Describe(s Shape) string {
	switch s.(type) {
	case *Circle:
		return "circle"
	case Square:
		return "square"
	case *Triangle:
		return "triangle"
	case nil:
		return "none"
	}
	return "unreachable"
}

// Area misses Triangle; the default swallows it.
func Area(s Shape) float64 {
	switch v := s.(type) {
	case *Circle:
		return v.area()
	case *Square:
		return v.area()
	default:
		return 0
	}
}

// Named has no unexported methods, so switches over it are open.
type Named interface {
	Name() string
}

type Point struct{}

func (Point) Name() string { return "point" }

func LabelOf(n Named) string {
	switch n.(type) {
	default:
		return "thing"
	}
}
