// Package robolink bridges an internal motion-planning representation to a
// ROS 2 style publish/subscribe network over NATS.
//
// # Architecture
//
// The node is built from small, independently testable packages:
//
//	┌─────────────────────────────────────┐
//	│          Control Loop               │  Plans waypoints and
//	│        (cmd/robolink)               │  publishes commands
//	└─────────────────────────────────────┘
//	           ↓ publishes via
//	┌─────────────────────────────────────┐
//	│       Communication Layer           │  Topic bindings, schema
//	│            (comms)                  │  conversion, delivery
//	└─────────────────────────────────────┘
//	           ↓ encodes with              ↓ sends over
//	┌──────────────────┐  ┌───────────────────────────┐
//	│   CDR Codec      │  │      Topic Session        │
//	│ (cdr + rosmsg)   │  │       (transport)         │
//	└──────────────────┘  └───────────────────────────┘
//
// Every message on the wire is a 4-byte ROS 2 CDR encapsulation header
// followed by the little-endian CDR body. Only the little-endian
// representation identifier is accepted; anything else is rejected before
// the body is touched.
//
// Inbound joint-state and camera-image topics each run one long-lived
// receive loop. A malformed payload is logged and dropped; it never
// terminates the subscription and never affects another topic.
package robolink
