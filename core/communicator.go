package core

// Communicator is the collective reduction used when a well's connections
// are spread over several computation ranks. Sum must be called
// symmetrically by every rank owning any connection of the well; the
// serial implementation returns immediately.
type Communicator interface {
	// Sum reduces buf in place across all ranks owning connections of the
	// current well.
	Sum(buf []float64)
}

// SerialComm is the single-rank Communicator. Every rank owns every
// connection, so the local buffer already holds the full sum.
type SerialComm struct{}

func (SerialComm) Sum([]float64) {}
