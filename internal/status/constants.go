// internal/status/constants.go
package status

// Node status frame layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- FRAME GEOMETRY ----

// FrameLen is the fixed status frame length in bytes.
const FrameLen = 8

// ---- BYTE OFFSETS (big-endian u16 each) ----

// OffsetHealth holds the node health state.
const OffsetHealth = 0

// OffsetLastErrorCode holds the last error code.
const OffsetLastErrorCode = 2

// OffsetOverruns holds the saturating deadline overrun count.
const OffsetOverruns = 4

// OffsetSecondsInError holds how long (in seconds) the node has been unhealthy.
const OffsetSecondsInError = 6

// ---- LIMITS ----

// CounterMax is where every status counter saturates.
const CounterMax = 65535

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state before the first cycle.
const HealthUnknown uint16 = 0

// HealthOK represents a cycle that acquired and published everything.
const HealthOK uint16 = 1

// HealthError represents a cycle whose publish failed.
const HealthError uint16 = 2

// HealthStale represents a cycle that published with missing sensor fields.
const HealthStale uint16 = 3

// HealthDisabled represents a node that skipped publishing on purpose.
const HealthDisabled uint16 = 4

// ---- ERROR CODES ----

// CodeNone means no error.
const CodeNone uint16 = 0

// CodeGeneric is used for errors that expose no code.
const CodeGeneric uint16 = 1

// CodeAcquisition is the base of sensor error codes; the low byte is the field.
const CodeAcquisition uint16 = 0x0100

// CodeTimeoutFlag marks acquisition codes caused by the read-level timeout.
const CodeTimeoutFlag uint16 = 0x0080

// CodePublish is the base of bus error codes; the low byte is the failure kind.
const CodePublish uint16 = 0x0200

// CodeOverrun marks a cycle that exceeded its period.
const CodeOverrun uint16 = 0x0300

// CodeConfiguration marks a start-up configuration error.
const CodeConfiguration uint16 = 0x0400
