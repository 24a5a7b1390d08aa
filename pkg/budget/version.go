package budget

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/orcaust/orcaust/internal/apperror"
)

var ErrInvalidVersion = apperror.New(apperror.Validation, "version must look like <major>.<minor>")

// Version counts full replacements of a budget. It renders as "major.minor".
type Version struct {
	Major int
	Minor int
}

var InitialVersion = Version{Major: 1, Minor: 0}

// Next bumps the minor number; after .9 it carries into the major, so 1.9 becomes 2.0.
func (v Version) Next() Version {
	if v.Minor >= 9 {
		return Version{Major: v.Major + 1, Minor: 0}
	}
	return Version{Major: v.Major, Minor: v.Minor + 1}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

func ParseVersion(s string) (Version, error) {
	majorPart, minorPart, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return Version{}, ErrInvalidVersion
	}
	major, errMajor := strconv.Atoi(majorPart)
	minor, errMinor := strconv.Atoi(minorPart)
	if errMajor != nil || errMinor != nil || major < 1 || minor < 0 || minor > 9 {
		return Version{}, ErrInvalidVersion
	}
	return Version{Major: major, Minor: minor}, nil
}
