package geolib_test

import (
	"fmt"

	"github.com/9seconds/geostash/geolib"
)

func ExampleNormalizeAlpha2Code() {
	fmt.Println(geolib.NormalizeAlpha2Code("ru"))
	// output: RU
}

func ExampleNormalizeAlpha2Code_yugoslavia() {
	fmt.Println(geolib.NormalizeAlpha2Code("YU"))
	// output: CS
}

func ExampleCountryName() {
	fmt.Println(geolib.CountryName("uk"))
	// output: United Kingdom
}

func ExampleAlpha3ToAlpha2() {
	code := geolib.Alpha3ToAlpha2("ita")

	fmt.Println(code)
	fmt.Println(geolib.CountryName(code))
	// output:
	// IT
	// Italy
}
