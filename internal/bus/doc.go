// Package bus provides the CAN side of the node: the classical Frame type,
// the Controller capability a bus driver must offer, an in-memory loopback
// segment with self-reception for single-node testing, acceptance filters,
// a logging decorator, a Linux SocketCAN controller, and the Publisher that
// turns a payload into one transmitted frame.
package bus
