// Package main provides the entry point for the rentscan CLI.
//
// rentscan ranks properties for sale in a postal area by estimated monthly
// rental cash flow, topping up thin areas with listings from neighboring
// areas.
//
// Usage:
//
//	rentscan rank <area>...
//	rentscan serve
//
// See --help for all available options.
package main

// main is the entry point for rentscan.
func main() {
	Execute()
}
