package vc

// DataStore holds one full cache line per way. Reads return copies so a
// caller never aliases the stored line; a write is visible to every
// following read.
type DataStore struct {
	lines     [][]byte
	lineBytes int
}

// NewDataStore creates a data store with numWays lines of lineBytes each.
func NewDataStore(numWays, lineBytes int) *DataStore {
	lines := make([][]byte, numWays)
	for way := range lines {
		lines[way] = make([]byte, lineBytes)
	}
	return &DataStore{
		lines:     lines,
		lineBytes: lineBytes,
	}
}

// LineBytes returns the line size in bytes.
func (d *DataStore) LineBytes() int {
	return d.lineBytes
}

// Read returns a copy of the line stored in a way.
func (d *DataStore) Read(way int) []byte {
	line := make([]byte, d.lineBytes)
	copy(line, d.lines[way])
	return line
}

// Write stores a line into a way. Short input lines are zero-padded.
func (d *DataStore) Write(way int, line []byte) {
	for i := range d.lines[way] {
		d.lines[way][i] = 0
	}
	copy(d.lines[way], line)
}

// Clear zeroes the line stored in a way.
func (d *DataStore) Clear(way int) {
	for i := range d.lines[way] {
		d.lines[way][i] = 0
	}
}
