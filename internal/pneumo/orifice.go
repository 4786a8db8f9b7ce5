package pneumo

import (
	"math"

	"github.com/san-kum/pneustab/internal/dynamo"
)

// laminarRatio is the pressure ratio above which the subsonic law is
// replaced by a linear one; the square-root law has an unbounded slope at
// zero pressure difference.
const laminarRatio = 0.999

// Orifice is a compressible restriction between two gas volumes.
type Orifice struct {
	Cd   float64 `yaml:"cd"`
	Area float64 `yaml:"area"`
}

func (o Orifice) Validate(field string) error {
	if err := dynamo.RequirePositive(field+".cd", o.Cd); err != nil {
		return err
	}
	if o.Cd > 1 {
		return dynamo.NewConfigError(field+".cd", o.Cd, "discharge coefficient must not exceed 1")
	}
	return dynamo.RequirePositive(field+".area", o.Area)
}

// MassFlow returns the mass flow from src into dst through the orifice at
// the given opening fraction. Positive means gas entering dst; the sign
// follows the pressure difference.
func (o Orifice) MassFlow(g Gas, opening, pDst, tDst, pSrc, tSrc float64) float64 {
	cda := o.Cd * o.Area * clamp01(opening)
	if cda <= 0 || pDst == pSrc {
		return 0
	}
	if pSrc > pDst {
		return cda * nozzleFlux(g, pSrc, tSrc, pDst/pSrc)
	}
	return -cda * nozzleFlux(g, pDst, tDst, pSrc/pDst)
}

// nozzleFlux is the isentropic mass flux per unit effective area for
// upstream state (pUp, tUp) and pressure ratio pr = pDown/pUp in [0,1).
func nozzleFlux(g Gas, pUp, tUp, pr float64) float64 {
	k := g.Gamma
	critical := math.Pow(2/(k+1), k/(k-1))
	if pr <= critical {
		return pUp * math.Sqrt(k/(g.R*tUp)) * math.Pow(2/(k+1), (k+1)/(2*(k-1)))
	}
	if pr > laminarRatio {
		return subsonicFlux(g, pUp, tUp, laminarRatio) * (1 - pr) / (1 - laminarRatio)
	}
	return subsonicFlux(g, pUp, tUp, pr)
}

func subsonicFlux(g Gas, pUp, tUp, pr float64) float64 {
	k := g.Gamma
	term := math.Pow(pr, 2/k) - math.Pow(pr, (k+1)/k)
	if term < 0 {
		term = 0
	}
	return pUp * math.Sqrt(2*k/(g.R*tUp*(k-1))*term)
}

func clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
