// Package sim provides in-process simulations of the node's peripherals.
//
// The simulations follow the same contracts as the hardware drivers they stand
// in for: the pulse counter saturates at its high limit and rejects filter
// windows wider than the hardware supports, the external converter only shifts
// data while its chip-select line is asserted, and the periodic timer returns
// immediately when a period boundary has already passed.
package sim
