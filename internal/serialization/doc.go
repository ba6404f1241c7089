// Package serialization implements the .born container used for frozen
// GPT-2 artifacts.
//
//	Format Structure (v2):
//	  0x00 [4 bytes: Magic "BORN"]
//	  0x04 [4 bytes: Version (uint32 LE)]
//	  0x08 [4 bytes: Flags (uint32 LE)]
//	  0x0C [4 bytes: Reserved]
//	  0x10 [8 bytes: Header Size (uint64 LE)]
//	  0x18 [8 bytes: Data Size (uint64 LE)]
//	  0x20 [32 bytes: SHA-256 of the data section]
//	  0x40 [Header: JSON metadata, tensor table and optional graph section]
//	       [Padding to 64 bytes]
//	       [Tensor data: little-endian float32]
//
// Example usage:
//
//	w, err := serialization.NewBornWriter("gpt2_124M_frozen.born")
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	if err := w.WriteTensors(tensors, header); err != nil {
//	    return err
//	}
//
//	r, err := serialization.NewMmapReader("gpt2_124M_frozen.born")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	data, shape, err := r.Float32("wte.weight")
package serialization
