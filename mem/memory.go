// Package mem provides the byte-addressable backing-store model for the
// cache hierarchy. It is purely functional; all cycle-level timing is
// handled by the memory controller in timing/memctrl.
package mem

// pageSize is the granularity of lazy allocation. Pages are allocated on
// first touch so sparse address spaces stay cheap.
const pageSize = 4096

// Memory is a sparse, byte-addressable store. All multi-byte accesses are
// little-endian.
type Memory struct {
	pages map[uint64][]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{
		pages: make(map[uint64][]byte),
	}
}

// page returns the page containing addr, allocating it if needed.
func (m *Memory) page(addr uint64) []byte {
	pageID := addr / pageSize
	p, ok := m.pages[pageID]
	if !ok {
		p = make([]byte, pageSize)
		m.pages[pageID] = p
	}
	return p
}

// Read8 reads one byte. Untouched memory reads as zero.
func (m *Memory) Read8(addr uint64) uint8 {
	pageID := addr / pageSize
	p, ok := m.pages[pageID]
	if !ok {
		return 0
	}
	return p[addr%pageSize]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint64, value uint8) {
	m.page(addr)[addr%pageSize] = value
}

// Read16 reads a little-endian 16-bit value.
func (m *Memory) Read16(addr uint64) uint16 {
	return uint16(m.Read8(addr)) |
		uint16(m.Read8(addr+1))<<8
}

// Write16 writes a little-endian 16-bit value.
func (m *Memory) Write16(addr uint64, value uint16) {
	m.Write8(addr, uint8(value))
	m.Write8(addr+1, uint8(value>>8))
}

// Read32 reads a little-endian 32-bit value.
func (m *Memory) Read32(addr uint64) uint32 {
	return uint32(m.Read16(addr)) |
		uint32(m.Read16(addr+2))<<16
}

// Write32 writes a little-endian 32-bit value.
func (m *Memory) Write32(addr uint64, value uint32) {
	m.Write16(addr, uint16(value))
	m.Write16(addr+2, uint16(value>>16))
}

// Read64 reads a little-endian 64-bit value.
func (m *Memory) Read64(addr uint64) uint64 {
	return uint64(m.Read32(addr)) |
		uint64(m.Read32(addr+4))<<32
}

// Write64 writes a little-endian 64-bit value.
func (m *Memory) Write64(addr uint64, value uint64) {
	m.Write32(addr, uint32(value))
	m.Write32(addr+4, uint32(value>>32))
}

// ReadLine reads size consecutive bytes starting at addr.
func (m *Memory) ReadLine(addr uint64, size int) []byte {
	data := make([]byte, size)
	for i := 0; i < size; i++ {
		data[i] = m.Read8(addr + uint64(i))
	}
	return data
}

// WriteLine writes the given bytes starting at addr.
func (m *Memory) WriteLine(addr uint64, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint64(i), b)
	}
}
