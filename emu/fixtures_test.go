package emu_test

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/tools/txtar"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/mem"
)

// Each fixture holds an "arm" or "thumb" section with one hex word per
// line, and a "want" section of "name value" pairs checked after the
// program halts.
var _ = Describe("Program fixtures", func() {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		panic(err)
	}

	for _, path := range paths {
		path := path
		It("should run "+filepath.Base(path), func() {
			ar, err := txtar.ParseFile(path)
			Expect(err).NotTo(HaveOccurred())

			e := emu.NewEmulator(emu.WithHLEBIOS(), emu.WithMaxInstructions(10000))
			bus := e.Bus().(*mem.Bus)
			e.SkipBIOS()

			var want []byte
			for _, f := range ar.Files {
				switch f.Name {
				case "arm":
					loadFixture(bus, f.Data, 32)
					e.Jump(codeBase)
				case "thumb":
					loadFixture(bus, f.Data, 16)
					e.Jump(codeBase | 1)
				case "want":
					want = f.Data
				}
			}
			Expect(want).NotTo(BeEmpty())

			_, err = e.Run()
			Expect(err).NotTo(HaveOccurred())

			sc := bufio.NewScanner(bytes.NewReader(want))
			for sc.Scan() {
				fields := strings.Fields(sc.Text())
				if len(fields) != 2 {
					continue
				}
				v, err := strconv.ParseUint(fields[1], 0, 64)
				Expect(err).NotTo(HaveOccurred())

				switch name := fields[0]; {
				case name == "instructions":
					Expect(e.InstructionCount()).To(Equal(v), name)
				case name == "cycles":
					Expect(e.CycleCount()).To(Equal(v), name)
				case strings.HasPrefix(name, "r"):
					reg, err := strconv.Atoi(name[1:])
					Expect(err).NotTo(HaveOccurred())
					Expect(e.RegFile().ReadReg(uint8(reg))).To(Equal(uint32(v)), name)
				default:
					Fail("unknown expectation " + name)
				}
			}
		})
	}
})

func loadFixture(bus *mem.Bus, data []byte, width int) {
	var (
		words  []uint32
		halves []uint16
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseUint(fields[0], 16, width)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		words = append(words, uint32(v))
		halves = append(halves, uint16(v))
	}

	if width == 16 {
		loadThumb(bus, codeBase, halves...)
		return
	}
	loadARM(bus, codeBase, words...)
}
