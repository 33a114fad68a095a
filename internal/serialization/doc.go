// Package serialization provides the .rbm binary format for saving and
// loading model parameters.
//
//	Format Structure:
//	  [0x00  4 bytes: Magic "RBMF"]
//	  [0x04  4 bytes: Version (uint32 LE)]
//	  [0x08  4 bytes: Flags (uint32 LE)]
//	  [0x0C  4 bytes: Reserved]
//	  [0x10  8 bytes: Header Size (uint64 LE)]
//	  [0x18  8 bytes: Data Size (uint64 LE)]
//	  [0x20 32 bytes: SHA-256 of the data section]
//	  [0x40 Header: JSON metadata]
//	  [Tensor data: float64 LE, 64-byte aligned]
//
// Every tensor is stored as float64. The reader validates the header,
// tensor names, offsets and the checksum before returning anything, so a
// malformed file never yields partial state.
//
// Example usage:
//
//	state := map[string]serialization.Tensor{
//	    "weights": {Shape: []int{784, 500}, Data: w},
//	}
//	err := serialization.WriteFile("model.rbm", state, serialization.Header{ModelType: "rbm"})
//
//	header, state, err := serialization.ReadFile("model.rbm")
package serialization
