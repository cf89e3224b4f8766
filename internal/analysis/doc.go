// Package analysis characterizes stored metric series.
//
//   - [PowerSpectrum]: one-sided amplitude spectrum of a uniformly sampled
//     series, used to find the sloshing frequency of a settling fluid
//   - [SettlingIndex]: first sample after which a series stays near zero
//     relative to its peak
//
// A pour into a closed tank shows up as a kinetic energy series that rings
// at the tank's sloshing frequency and then decays:
//
//	s := analysis.PowerSpectrum(series.Values["kinetic_energy"], dt)
//	f, _, ok := s.Dominant()
package analysis
