package shaper_test

import (
	"fmt"

	"github.com/cwbudde/algo-waveshaper/dsp/shaper"
)

func ExampleApply() {
	for _, x := range []float64{-2, 0.5, 2} {
		fmt.Printf("%.4f ", shaper.Apply(shaper.Saturate, x))
	}
	fmt.Println()
	// Output: -0.6667 0.3333 0.6667
}

func ExampleParse() {
	c, err := shaper.Parse("poly")
	if err != nil {
		panic(err)
	}
	fmt.Println(int(c), c.Label())
	// Output: 6 Poly Soft Clip
}
