// Package nats bridges the command protocol onto NATS.
//
// # Subjects
//
//	<prefix>.command   # request/reply, same JSON as the TCP protocol
//	<prefix>.state     # published on every mode change
//
// The prefix defaults to "pixelnode". Core NATS only, no JetStream.
// An embedded server can be started in-process for setups without a broker.
//
// # Debugging with nats CLI
//
//	nats req pixelnode.command '{"command":"mode","mode":2}'
//	nats req pixelnode.command '{"command":"status"}'
//	nats sub "pixelnode.state" | jq .
package nats
