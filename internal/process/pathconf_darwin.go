package process

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const platformPathMax = 1024

// _PC_* values from <unistd.h> on darwin, indexed by PathConfName.
var nativePathConf = [...]int{
	PCLinkMax:         1,
	PCMaxCanon:        2,
	PCMaxInput:        3,
	PCNameMax:         4,
	PCPathMax:         5,
	PCPipeBuf:         6,
	PCChownRestricted: 7,
	PCNoTrunc:         8,
	PCVDisable:        9,
}

// PathConf queries variable name for path.
func PathConf(path string, name PathConfName) (int64, error) {
	if name < 0 || int(name) >= len(nativePathConf) {
		return -1, syscall.EINVAL
	}
	v, err := unix.Pathconf(path, nativePathConf[name])
	if err != nil {
		return -1, err
	}
	return int64(v), nil
}
