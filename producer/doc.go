// Package producer implements the first phase of an external sort: it reads
// the input once and cuts it into runs, each sorted in memory and written to
// its own storage slot.
//
// A run is cut once the serialized size of its records reaches the run size,
// so a run may overshoot by the single record that crossed the budget. The
// number of runs therefore never exceeds ceil(total bytes / run size).
//
// Records are held in a Buffer while a run fills. SliceBuffer sorts once when
// the run is cut; TreeBuffer keeps records ordered as they arrive and stores
// repeated values once with a count.
package producer
