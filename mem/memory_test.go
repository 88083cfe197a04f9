package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vcsim/mem"
)

var _ = Describe("Memory", func() {
	var m *mem.Memory

	BeforeEach(func() {
		m = mem.NewMemory()
	})

	It("should read zero from untouched memory", func() {
		Expect(m.Read8(0x0)).To(Equal(uint8(0)))
		Expect(m.Read64(0xFFFF_FFFF_0000)).To(Equal(uint64(0)))
	})

	It("should round-trip values of every width", func() {
		m.Write8(0x10, 0xAB)
		m.Write16(0x20, 0xBEEF)
		m.Write32(0x30, 0xDEADBEEF)
		m.Write64(0x40, 0x0123456789ABCDEF)

		Expect(m.Read8(0x10)).To(Equal(uint8(0xAB)))
		Expect(m.Read16(0x20)).To(Equal(uint16(0xBEEF)))
		Expect(m.Read32(0x30)).To(Equal(uint32(0xDEADBEEF)))
		Expect(m.Read64(0x40)).To(Equal(uint64(0x0123456789ABCDEF)))
	})

	It("should store multi-byte values little-endian", func() {
		m.Write32(0x100, 0x11223344)

		Expect(m.Read8(0x100)).To(Equal(uint8(0x44)))
		Expect(m.Read8(0x101)).To(Equal(uint8(0x33)))
		Expect(m.Read8(0x102)).To(Equal(uint8(0x22)))
		Expect(m.Read8(0x103)).To(Equal(uint8(0x11)))
	})

	It("should handle accesses spanning page boundaries", func() {
		addr := uint64(4096 - 2)
		m.Write32(addr, 0xCAFEBABE)
		Expect(m.Read32(addr)).To(Equal(uint32(0xCAFEBABE)))
	})

	It("should round-trip whole lines", func() {
		line := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		m.WriteLine(0x200, line)

		Expect(m.ReadLine(0x200, 8)).To(Equal(line))
		Expect(m.Read8(0x207)).To(Equal(uint8(8)))
	})
})
