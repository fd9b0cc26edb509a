package ggui

// BuildMode selects how programming errors in binding contracts are treated.
type BuildMode uint8

const (
	// BuildDebug panics on binding contract violations.
	BuildDebug BuildMode = iota

	// BuildRelease logs binding contract violations and continues.
	BuildRelease
)

func (m BuildMode) String() string {
	if m == BuildRelease {
		return "release"
	}
	return "debug"
}
