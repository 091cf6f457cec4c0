package crypt

// Zero overwrites b with zero bytes in place. Callers release secret key
// material (derived keys, private keys passed in as raw bytes) through this
// function as soon as a capability call finishes with them, rather than
// relying on the garbage collector to happen to overwrite the backing array.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
