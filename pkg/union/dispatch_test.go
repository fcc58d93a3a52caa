package union

import (
	"errors"
	"math"
	"testing"
)

func areaHandlers() Handlers[Shape, float64] {
	return Handlers[Shape, float64]{
		"circle": func(s Shape) (float64, error) {
			c := MustAs[*Circle](s)
			return math.Pi * c.Radius * c.Radius, nil
		},
		"square": func(s Shape) (float64, error) {
			sq := MustAs[*Square](s)
			return sq.Side * sq.Side, nil
		},
	}
}

func TestDispatch_Area(t *testing.T) {
	d, err := NewDispatcher(newShapeUnion(), areaHandlers())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := d.Dispatch(&Square{Side: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 16 {
		t.Errorf("square area = %v, want 16", got)
	}

	got, err = d.Dispatch(&Circle{Radius: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-math.Pi*16) > 1e-9 {
		t.Errorf("circle area = %v, want %v", got, math.Pi*16)
	}
	if math.Abs(got-50.265) > 0.001 {
		t.Errorf("circle area = %v, want about 50.265", got)
	}
}

func TestNewDispatcher_MissingHandler(t *testing.T) {
	// The union gained a variant, the handler table did not.
	u := New[Shape]("Shape").
		Variant("circle").
		Variant("square").
		Variant("triangle").
		Seal()

	_, err := NewDispatcher(u, areaHandlers())
	if err == nil {
		t.Fatal("expected error for uncovered variant")
	}
	var uncovered *UncoveredTagError
	if !errors.As(err, &uncovered) {
		t.Fatalf("error = %T, want *UncoveredTagError", err)
	}
	if len(uncovered.Tags) != 1 || uncovered.Tags[0] != "triangle" {
		t.Errorf("uncovered tags = %v, want [triangle]", uncovered.Tags)
	}
}

func TestNewDispatcher_ForeignHandler(t *testing.T) {
	hs := areaHandlers()
	hs["pentagon"] = func(s Shape) (float64, error) { return 0, nil }

	_, err := NewDispatcher(newShapeUnion(), hs)
	if err == nil {
		t.Fatal("expected error for undeclared handler tag")
	}
	var foreign *ForeignTagError
	if !errors.As(err, &foreign) {
		t.Fatalf("error = %T, want *ForeignTagError", err)
	}
	if len(foreign.Tags) != 1 || foreign.Tags[0] != "pentagon" {
		t.Errorf("foreign tags = %v, want [pentagon]", foreign.Tags)
	}
}

func TestDispatch_UndeclaredTagIsFatal(t *testing.T) {
	d, err := NewDispatcher(newShapeUnion(), areaHandlers())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A triangle value reaching a two-variant dispatch site must surface
	// the offending tag, not fall through to a default result.
	_, err = d.Dispatch(&Triangle{Base: 3, Height: 2})
	if err == nil {
		t.Fatal("expected error for undeclared tag")
	}
	var unknown *UnknownTagError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %T, want *UnknownTagError", err)
	}
	if unknown.Tag != "triangle" {
		t.Errorf("offending tag = %q, want triangle", unknown.Tag)
	}
}

func TestDispatch_TableCopiedFromCaller(t *testing.T) {
	hs := areaHandlers()
	d, err := NewDispatcher(newShapeUnion(), hs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Deleting from the caller's map must not reopen the sealed table.
	delete(hs, "square")
	got, err := d.Dispatch(&Square{Side: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 9 {
		t.Errorf("square area = %v, want 9", got)
	}
}

func TestMustDispatcher_PanicsOnCoverageError(t *testing.T) {
	u := New[Shape]("Shape").
		Variant("circle").
		Variant("square").
		Variant("triangle").
		Seal()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for uncovered variant")
		}
	}()
	MustDispatcher(u, areaHandlers())
}

func TestMatch_OneShot(t *testing.T) {
	var v Shape = &Square{Side: 5}
	got, err := Match(newShapeUnion(), v, areaHandlers())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 25 {
		t.Errorf("square area = %v, want 25", got)
	}
}

func TestDispatch_HandlerErrorPropagates(t *testing.T) {
	wantErr := errors.New("negative radius")
	hs := Handlers[Shape, float64]{
		"circle": func(s Shape) (float64, error) { return 0, wantErr },
		"square": func(s Shape) (float64, error) { return 0, nil },
	}
	d, err := NewDispatcher(newShapeUnion(), hs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = d.Dispatch(&Circle{Radius: -1})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}
