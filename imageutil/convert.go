package imageutil

// BT.709 luma weights.
const (
	LumaR = 0.2126
	LumaG = 0.7152
	LumaB = 0.0722
)

// Luma709 returns the BT.709 luma of 8-bit channels, in [0,1].
func Luma709(r, g, b uint8) float64 {
	v := (LumaR*float64(r) + LumaG*float64(g) + LumaB*float64(b)) / 255
	if v > 1 {
		return 1
	}
	return v
}

// LumaPlane returns the BT.709 luma of every pixel, row-major, in [0,1].
func LumaPlane(img *RGBAImage) []float32 {
	width, height := img.Width(), img.Height()
	out := make([]float32, width*height)
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			i := x * 4
			out[y*width+x] = float32(Luma709(row[i], row[i+1], row[i+2]))
		}
	}
	return out
}
