package road

import "math"

// profile is a road height as a function of travelled distance.
type profile interface {
	heightAt(s float64) float64
}

type flatProfile struct{}

func (flatProfile) heightAt(float64) float64 { return 0 }

type sineProfile struct {
	amplitude  float64
	wavelength float64
	leadIn     float64
}

func (p sineProfile) heightAt(s float64) float64 {
	if s <= 0 {
		return 0
	}
	h := p.amplitude * math.Sin(2*math.Pi*s/p.wavelength)
	if s < p.leadIn {
		h *= taper(s / p.leadIn)
	}
	return h
}

// featureProfile is a single raised-cosine obstacle: positive height for a
// speed bump, negative for a pothole.
type featureProfile struct {
	position float64
	length   float64
	height   float64
}

func (p featureProfile) heightAt(s float64) float64 {
	x := s - p.position
	if x <= 0 || x >= p.length {
		return 0
	}
	return p.height * 0.5 * (1 - math.Cos(2*math.Pi*x/p.length))
}

// sampledProfile is a uniformly sampled track with linear interpolation.
// Outside the sampled range the road is flat.
type sampledProfile struct {
	spacing float64
	samples []float64
}

func (p sampledProfile) heightAt(s float64) float64 {
	if s <= 0 || len(p.samples) < 2 {
		return 0
	}
	idx := s / p.spacing
	i := int(idx)
	if i >= len(p.samples)-1 {
		return 0
	}
	frac := idx - float64(i)
	return p.samples[i]*(1-frac) + p.samples[i+1]*frac
}

type compositeProfile []profile

func (c compositeProfile) heightAt(s float64) float64 {
	h := 0.0
	for _, p := range c {
		h += p.heightAt(s)
	}
	return h
}

// taper is a half-cosine ramp from 0 at x=0 to 1 at x=1.
func taper(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return 0.5 * (1 - math.Cos(math.Pi*x))
}
