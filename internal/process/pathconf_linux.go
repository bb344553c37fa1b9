package process

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const platformPathMax = 4096

// Linux has no pathconf system call. The values follow glibc: constants
// for the terminal and path limits, statfs for the per-filesystem ones.
const (
	linuxLinkMax  = 127
	linuxMaxCanon = 255
	linuxMaxInput = 255
	linuxPipeBuf  = 4096
)

var fsLinkMax = map[int64]int64{
	0xEF53:     65000,      // ext2/3/4
	0x58465342: 2147483647, // xfs
	0x9123683E: 65535,      // btrfs
	0x137F:     250,        // minix
	0x2468:     65530,      // minix2
}

// PathConf queries variable name for path.
func PathConf(path string, name PathConfName) (int64, error) {
	switch name {
	case PCLinkMax:
		var st unix.Statfs_t
		if err := unix.Statfs(path, &st); err != nil {
			return -1, err
		}
		if v, ok := fsLinkMax[int64(st.Type)]; ok {
			return v, nil
		}
		return linuxLinkMax, nil
	case PCNameMax:
		var st unix.Statfs_t
		if err := unix.Statfs(path, &st); err != nil {
			return -1, err
		}
		return int64(st.Namelen), nil
	case PCMaxCanon:
		return linuxMaxCanon, nil
	case PCMaxInput:
		return linuxMaxInput, nil
	case PCPathMax:
		return platformPathMax, nil
	case PCPipeBuf:
		return linuxPipeBuf, nil
	case PCChownRestricted, PCNoTrunc:
		return 1, nil
	case PCVDisable:
		return 0, nil
	}
	return -1, syscall.EINVAL
}
