package model

import "math"

const gammaExponent = 2.8

// gammaLUT maps a raw channel value to its perceptually corrected output.
// Built once in init and never written again.
var gammaLUT [256]uint8

func init() {
	for i := range gammaLUT {
		v := math.Pow(float64(i)/255.0, gammaExponent)*255.0 + 0.5
		gammaLUT[i] = uint8(math.Min(255, v))
	}
}

// Gamma is the brightness correction applied to each channel before it goes on the bus.
func Gamma(v uint8) uint8 {
	return gammaLUT[v]
}
