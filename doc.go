// Package socketcan provides a host-level abstraction over Linux SocketCAN
// raw sockets.
//
// It includes:
//   - A core Frame type in the exact struct can_frame wire layout with
//     explicit pack/unpack helpers
//   - A decoder mapping error frames to a typed bus-error taxonomy
//   - Identifier/mask filters and a capacity-bounded filter group
//   - A Channel capability interface polymorphic over blocking and
//     non-blocking operation, implemented by a raw socket (linux-only)
//     and by an in-memory loopback bus for tests and simulations
package socketcan
