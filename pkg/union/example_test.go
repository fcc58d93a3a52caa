package union

import (
	"fmt"
	"math"
)

func ExampleDispatcher() {
	shapes := New[Shape]("Shape").
		Variant("circle").
		Variant("square").
		Seal()

	area := MustDispatcher(shapes, Handlers[Shape, float64]{
		"circle": func(s Shape) (float64, error) {
			c := MustAs[*Circle](s)
			return math.Pi * c.Radius * c.Radius, nil
		},
		"square": func(s Shape) (float64, error) {
			sq := MustAs[*Square](s)
			return sq.Side * sq.Side, nil
		},
	})

	for _, s := range []Shape{&Square{Side: 4}, &Circle{Radius: 4}} {
		a, err := area.Dispatch(s)
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Printf("%s: %.3f\n", s.Tag(), a)
	}
	// Output:
	// square: 16.000
	// circle: 50.265
}

func ExampleFilterTag() {
	shapes := []Shape{&Circle{Radius: 1}, &Square{Side: 2}, &Circle{Radius: 3}}

	for _, s := range FilterTag(shapes, "circle") {
		fmt.Println(MustAs[*Circle](s).Radius)
	}
	// Output:
	// 1
	// 3
}

func ExampleCap() {
	pets := []Pet{&Fish{Name: "shark"}, &Bird{Name: "bird"}}

	for _, p := range pets {
		if s, ok := Cap[Swimmer](p); ok {
			fmt.Println(s.Swim())
		} else {
			fmt.Println(p.Tag(), "stays dry")
		}
	}
	// Output:
	// shark swims
	// bird stays dry
}
