package structure

import (
	"math"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/config"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
)

// #region role
// Role is the structural role of a chapter.
type Role string

const (
	Exposition   Role = "exposition"
	Setup        Role = "setup"
	RisingAction Role = "rising_action"
	ClimaxRole   Role = "climax"
	Resolution   Role = "resolution"
)

// ChapterRole assigns a role from chapter position alone.
func ChapterRole(index, total int) Role {
	switch {
	case index == 0:
		return Exposition
	case index < total/4:
		return Setup
	case index < total/2:
		return RisingAction
	case index < 3*total/4:
		return ClimaxRole
	default:
		return Resolution
	}
}

// #endregion role

// #region chapter-limits
// ChapterLimits returns the per-chapter cap on tier>=2 segments, indexed like
// store.Chapters. A negative entry means unlimited.
func ChapterLimits(cfg config.Config, store *narrative.Store) []int {
	chs := store.Chapters()
	out := make([]int, len(chs))
	for i, ch := range chs {
		if cfg.Density.ChapterLimit == 0 {
			out[i] = -1
			continue
		}
		role := ChapterRole(i, len(chs))
		limit := float64(ch.Len()) * cfg.Density.ChapterLimit * cfg.ChapterMultiplier(string(role))
		out[i] = int(math.Ceil(limit))
	}
	return out
}

// #endregion chapter-limits
