package timing

import (
	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim86/decoder"
	"github.com/sarchlab/sim86/instr"
)

var _ = Describe("Estimator", func() {
	var (
		mockCtrl *gomock.Controller
		regs     *MockRegisterReader
	)

	decode := func(code ...byte) instr.Instruction {
		inst, err := decoder.Decode(code, 0)
		Expect(err).NotTo(HaveOccurred())

		return inst
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		regs = NewMockRegisterReader(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("Register Forms", func() {
		It("should cost a register move", func() {
			Expect(Estimate(decode(0x89, 0xD8), regs)).To(Equal(Cost{Base: 2}))
		})

		It("should cost register arithmetic", func() {
			Expect(Estimate(decode(0x01, 0xD8), regs)).To(Equal(Cost{Base: 3}))
			Expect(Estimate(decode(0x39, 0xD8), regs)).To(Equal(Cost{Base: 3}))
		})

		It("should cost immediates", func() {
			Expect(Estimate(decode(0xB8, 0x05, 0x00), regs).Total(false)).To(Equal(4))
			Expect(Estimate(decode(0x05, 0x05, 0x00), regs).Total(false)).To(Equal(4))
			Expect(Estimate(decode(0x83, 0xC3, 0x05), regs).Total(false)).To(Equal(4))
		})

		It("should cost inc by width", func() {
			Expect(Estimate(decode(0x41), regs).Total(false)).To(Equal(2))
			Expect(Estimate(decode(0xFE, 0xC1), regs).Total(false)).To(Equal(3))
		})
	})

	Context("Memory Forms", func() {
		It("should charge the fast pair and the odd-address penalty", func() {
			regs.EXPECT().Read(instr.BX).Return(uint16(0x100)).AnyTimes()
			regs.EXPECT().Read(instr.SI).Return(uint16(1)).AnyTimes()

			c := Estimate(decode(0x8B, 0x00), regs) // mov ax, [bx+si]

			Expect(c).To(Equal(Cost{Base: 8, EA: 7, Penalty: 4}))
			Expect(c.Total(false)).To(Equal(19))
		})

		It("should not charge the penalty at an even address", func() {
			regs.EXPECT().Read(instr.BX).Return(uint16(0x100)).AnyTimes()
			regs.EXPECT().Read(instr.SI).Return(uint16(2)).AnyTimes()

			Expect(Estimate(decode(0x8B, 0x00), regs).Penalty).To(Equal(0))
		})

		It("should not charge the penalty for byte operands", func() {
			c := Estimate(decode(0x8A, 0x00), regs) // mov al, [bx+si]

			Expect(c).To(Equal(Cost{Base: 8, EA: 7}))
		})

		It("should charge a direct address", func() {
			c := Estimate(decode(0x8B, 0x1E, 0xE8, 0x03), regs) // mov bx, [1000]

			Expect(c).To(Equal(Cost{Base: 8, EA: 6}))
		})

		It("should use the accumulator table without EA", func() {
			Expect(Estimate(decode(0xA3, 0xE8, 0x03), regs)).
				To(Equal(Cost{Base: 10}))
			Expect(Estimate(decode(0xA1, 0xE9, 0x03), regs)).
				To(Equal(Cost{Base: 10, Penalty: 4}))
		})

		It("should not use the accumulator table for AH", func() {
			load := Estimate(decode(0x8A, 0x26, 0xE8, 0x03), regs) // mov ah, [1000]
			store := Estimate(decode(0x88, 0x26, 0xE8, 0x03), regs) // mov [1000], ah

			Expect(load).To(Equal(Cost{Base: 8, EA: 6}))
			Expect(load.Total(false)).To(Equal(14))
			Expect(store).To(Equal(Cost{Base: 9, EA: 6}))
			Expect(store.Total(false)).To(Equal(15))
		})

		It("should not use the accumulator immediate form for AH", func() {
			c := Estimate(decode(0x80, 0xC4, 0x01), regs) // add ah, 1

			Expect(c).To(Equal(Cost{Base: 4}))
		})

		It("should check alignment of direct addresses without a reader", func() {
			direct := Estimate(decode(0x8B, 0x1E, 0xE9, 0x03), nil) // mov bx, [1001]
			based := Estimate(decode(0x8B, 0x07), nil)              // mov ax, [bx]

			Expect(direct).To(Equal(Cost{Base: 8, EA: 6, Penalty: 4}))
			Expect(based).To(Equal(Cost{Base: 8, EA: 5}))
		})

		It("should add the displacement surcharge", func() {
			regs.EXPECT().Read(instr.BX).Return(uint16(0)).AnyTimes()
			regs.EXPECT().Read(instr.DI).Return(uint16(0)).AnyTimes()

			c := Estimate(decode(0x8B, 0x49, 0x04), regs) // mov cx, [bx+di+4]

			Expect(c).To(Equal(Cost{Base: 8, EA: 12}))
		})

		It("should cost read-modify-write arithmetic", func() {
			regs.EXPECT().Read(instr.BP).Return(uint16(0)).AnyTimes()
			regs.EXPECT().Read(instr.DI).Return(uint16(2)).AnyTimes()
			regs.EXPECT().Read(instr.BX).Return(uint16(0x10)).AnyTimes()

			Expect(Estimate(decode(0x01, 0x03), regs).Total(false)).To(Equal(16 + 7))
			Expect(Estimate(decode(0x83, 0x07, 0x05), regs).Total(false)).To(Equal(17 + 5))
			Expect(Estimate(decode(0x39, 0x07), regs).Total(false)).To(Equal(9 + 5))
		})
	})

	Context("Control Flow", func() {
		It("should add the taken surcharge to branches", func() {
			je := Estimate(decode(0x74, 0x02), regs)
			Expect(je.Total(false)).To(Equal(4))
			Expect(je.Total(true)).To(Equal(16))

			loopnz := Estimate(decode(0xE0, 0xFE), regs)
			Expect(loopnz.Total(false)).To(Equal(5))
			Expect(loopnz.Total(true)).To(Equal(19))
		})

		It("should cost terminals", func() {
			Expect(Estimate(decode(0xC3), regs).Total(false)).To(Equal(8))
			Expect(Estimate(decode(0xF4), regs).Total(false)).To(Equal(2))
		})
	})

	It("should classify address pairs", func() {
		pair := func(a, b instr.RegisterAccess, disp int16) instr.EffectiveAddress {
			return instr.EffectiveAddress{
				Terms: [2]instr.AddressTerm{
					{Register: a, Scale: 1},
					{Register: b, Scale: 1},
				},
				Displacement: disp,
			}
		}

		Expect(EACycles(pair(instr.BP, instr.DI, 0))).To(Equal(7))
		Expect(EACycles(pair(instr.BX, instr.SI, 0))).To(Equal(7))
		Expect(EACycles(pair(instr.BX, instr.DI, 0))).To(Equal(8))
		Expect(EACycles(pair(instr.BP, instr.SI, -3))).To(Equal(12))
		Expect(EACycles(instr.EffectiveAddress{Displacement: 7})).To(Equal(6))
	})

	It("should accumulate a running total", func() {
		e := NewEstimator()

		Expect(e.Accumulate(Cost{Base: 4, Taken: 12}, true)).To(Equal(16))
		Expect(e.Accumulate(Cost{Base: 2}, false)).To(Equal(18))
		Expect(e.Total()).To(Equal(18))

		e.Reset()
		Expect(e.Total()).To(Equal(0))
	})
})
