// Package templates renders dashboard view trees as HTML. Components are
// written in the .templ files next to this one; regenerate the *_templ.go
// files after editing them.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.943 generate

import "strconv"

// Element IDs of the sections patched by the refresh stream.
const (
	StatusID   = "status"
	MetricsID  = "metrics"
	ProductsID = "products"
	MonthlyID  = "monthly"
	RegionsID  = "regions"
	RawDataID  = "raw-data"
)

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func viewBox(width, height float64) string {
	return "0 0 " + num(width) + " " + num(height)
}

// rotateAt turns a label 45 degrees counter-clockwise around (x, y).
func rotateAt(x, y float64) string {
	return "rotate(-45 " + num(x) + " " + num(y) + ")"
}

func tooltip(label, value string) string {
	return label + ": " + value
}
