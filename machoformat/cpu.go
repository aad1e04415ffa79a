package machoformat

// CPU identifies a Mach-O slice's processor architecture, the 0x01000000
// bit of which (CPU_ARCH_ABI64) is what the fat dispatcher uses to decide whether
// a slice is eligible for decoding at all.
type CPU uint32

const (
	cpuArchMask = 0xff000000
	cpuArch64   = 0x01000000
)

// IsArch64 reports whether the CPU_ARCH_ABI64 bit is set.
func (c CPU) IsArch64() bool { return uint32(c)&cpuArch64 != 0 }

const (
	CPUTypeX86    CPU = 7
	CPUTypeX8664  CPU = CPUTypeX86 | cpuArch64
	CPUTypeARM    CPU = 12
	CPUTypeARM64  CPU = CPUTypeARM | cpuArch64
	CPUTypePowerPC   CPU = 18
	CPUTypePowerPC64 CPU = CPUTypePowerPC | cpuArch64
)

var cpuNames = []intName{
	{uint32(CPUTypeX86), "i386"},
	{uint32(CPUTypeX8664), "x86_64"},
	{uint32(CPUTypeARM), "arm"},
	{uint32(CPUTypeARM64), "arm64"},
	{uint32(CPUTypePowerPC), "ppc"},
	{uint32(CPUTypePowerPC64), "ppc64"},
}

func (c CPU) String() string { return stringName(uint32(c), cpuNames, "CPU_TYPE") }

// CPUSubtype further refines CPU. Its meaning is CPU-specific, so
// rendering it always takes the parent CPU as context.
type CPUSubtype uint32

const cpuSubtypeMask = 0x00ffffff

var cpuSubtypeX8664Names = []intName{
	{3, "x86_64_all"},
	{4, "x86_64_arch1"},
	{8, "x86_64h"},
}

var cpuSubtypeARM64Names = []intName{
	{0, "arm64_all"},
	{1, "arm64v8"},
	{2, "arm64e"},
}

// String renders st in the context of the given parent cpu.
func (st CPUSubtype) String(cpu CPU) string {
	masked := uint32(st) & cpuSubtypeMask
	switch cpu {
	case CPUTypeX8664:
		return stringName(masked, cpuSubtypeX8664Names, "CPU_SUBTYPE")
	case CPUTypeARM64:
		return stringName(masked, cpuSubtypeARM64Names, "CPU_SUBTYPE")
	default:
		return stringName(masked, nil, "CPU_SUBTYPE")
	}
}

// intName pairs a raw integer value with its symbolic name.
type intName struct {
	i uint32
	s string
}

func stringName(i uint32, names []intName, prefix string) string {
	for _, n := range names {
		if n.i == i {
			return n.s
		}
	}
	return hexName(prefix, i)
}
