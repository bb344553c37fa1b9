//go:build linux || darwin

package process

import (
	"fmt"
	"strings"
)

// PathConfName is one of the pathconf(3) variables.
type PathConfName int

const (
	PCLinkMax PathConfName = iota
	PCMaxCanon
	PCMaxInput
	PCNameMax
	PCPathMax
	PCPipeBuf
	PCChownRestricted
	PCNoTrunc
	PCVDisable
)

var pathConfNames = map[string]PathConfName{
	"LINK_MAX":         PCLinkMax,
	"MAX_CANON":        PCMaxCanon,
	"MAX_INPUT":        PCMaxInput,
	"NAME_MAX":         PCNameMax,
	"PATH_MAX":         PCPathMax,
	"PIPE_BUF":         PCPipeBuf,
	"CHOWN_RESTRICTED": PCChownRestricted,
	"NO_TRUNC":         PCNoTrunc,
	"VDISABLE":         PCVDisable,
}

// PathConfNames lists every known name in order.
func PathConfNames() []PathConfName {
	return []PathConfName{
		PCLinkMax, PCMaxCanon, PCMaxInput, PCNameMax, PCPathMax,
		PCPipeBuf, PCChownRestricted, PCNoTrunc, PCVDisable,
	}
}

func (n PathConfName) String() string {
	for name, v := range pathConfNames {
		if v == n {
			return name
		}
	}
	return fmt.Sprintf("PathConfName(%d)", int(n))
}

// ParsePathConfName accepts "NAME_MAX" or "_PC_NAME_MAX", any case.
func ParsePathConfName(s string) (PathConfName, error) {
	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "_PC_")
	n, ok := pathConfNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown pathconf name %q", s)
	}
	return n, nil
}

// MaxPath returns PATH_MAX for the root file system, or the compiled-in
// platform value if it cannot be queried.
func MaxPath() int64 {
	v, err := PathConf("/", PCPathMax)
	if err != nil || v <= 0 {
		return platformPathMax
	}
	return v
}
