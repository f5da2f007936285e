package renderer

import (
	"image/color"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// num formats v with a fixed number of decimals.
func num(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func hex(c color.RGBA) string {
	cf, _ := colorful.MakeColor(c)
	return cf.Hex()
}
