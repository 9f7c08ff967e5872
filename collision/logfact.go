package collision

import (
	"fmt"
	"math"
)

const (
	// tableMax is the largest m served from the cumulative table. Nemes'
	// approximation is used strictly above it.
	tableMax = 80

	// maxTrusted is where the asymptotic form stops being trusted.
	maxTrusted = 1e15
)

var logFactTable = func() [tableMax + 1]float64 {
	var t [tableMax + 1]float64
	for i := 2; i <= tableMax; i++ {
		t[i] = t[i-1] + math.Log(float64(i))
	}

	return t
}()

// LogFactorial returns ln(m!). It panics for m >= 1e15.
func LogFactorial(m uint64) float64 {
	if m <= tableMax {
		return logFactTable[m]
	}

	if float64(m) >= maxTrusted {
		panic(fmt.Sprintf("collision: LogFactorial(%d) beyond asymptotic range", m))
	}

	return logGamma(float64(m) + 1)
}

// logGamma is Nemes' approximation of ln Γ(z).
func logGamma(z float64) float64 {
	return 0.5*(math.Log(2*math.Pi)-math.Log(z)) +
		z*(math.Log(z+1/(12*z-1/(10*z)))-1)
}
