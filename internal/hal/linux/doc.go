// Package linux implements the hal capabilities on a Linux host:
// IIO for the ADC, the counter subsystem for pulse counting, i2c-dev,
// spidev, sysfs GPIO for chip select, and timerfd for the cycle period.
package linux
