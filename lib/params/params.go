package params

const (
	// SecParam is the bit strength of the hash primitives used by the kernel.
	SecParam = 256
	// SecBytes is SecParam in bytes.
	SecBytes = SecParam / 8
	// NonceBytes is the size of a commitment nonce. The commitment contract
	// requires at least 128 bits of entropy; 16 bytes is exactly that.
	NonceBytes = 16
)
