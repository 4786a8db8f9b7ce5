// Package analysis characterizes recorded stabilizer runs.
//
//   - [PowerSpectrum]: one-sided power spectral density of a signal
//   - [DominantFrequency]: strongest non-DC component
//   - [Describe]: mean, spread, RMS, peak and settling time of a signal
//   - [Transmissibility]: ratio of body to road spectra per frequency band
//
// A typical use is checking that the heave resonance sits near the
// expected ride frequency:
//
//	spec := analysis.PowerSpectrum(heave, dt)
//	f := spec.DominantFrequency()
package analysis
