// Package device discovers the channels of an APT controller and exposes
// per-channel capabilities on top of an apt.Connection.
//
// A stand-alone unit addresses its channels with channel ID bits 1<<i on
// its own destination address. A rack controller, recognised by the serial
// number prefix, hosts single-channel modules in bays: each occupied bay
// becomes one channel with channel ID 0x01 at bay address 0x21+slot.
//
// [Open] resolves and opens the serial port, performs the connect
// handshake, enumerates channels and enables them. [Controller.Close]
// disables the channels it enabled and closes the connection, once.
package device
