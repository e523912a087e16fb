// Package namelist provides case-insensitive include/exclude filtering
// for region and sample name lists supplied on the command line.
package namelist

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Filter decides whether a name passes the user-supplied include and
// exclude lists. The zero value keeps everything.
type Filter struct {
	include map[string]bool
	exclude map[string]bool
}

// New builds a Filter from raw include and exclude lists. An entry
// appearing in both lists is a configuration error. When valid is
// non-nil, entries not found in it are dropped with a warning; kind
// names the list ("region", "sample") in messages.
func New(include, exclude []string, kind string, valid []string, logger *zap.Logger) (Filter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, item := range include {
		for _, other := range exclude {
			if strings.EqualFold(item, other) {
				return Filter{}, fmt.Errorf("%s is in both include and exclude %s lists", item, kind)
			}
		}
	}

	var validSet map[string]bool
	if valid != nil {
		validSet = make(map[string]bool, len(valid))
		for _, v := range valid {
			validSet[strings.ToLower(v)] = true
		}
	}

	build := func(items []string, listName string) map[string]bool {
		if len(items) == 0 {
			return nil
		}
		set := make(map[string]bool, len(items))
		for _, item := range items {
			lower := strings.ToLower(item)
			if validSet != nil && !validSet[lower] {
				logger.Warn("ignoring invalid list entry",
					zap.String("list", listName+" "+kind),
					zap.String("entry", item))
				continue
			}
			set[lower] = true
		}
		return set
	}

	return Filter{
		include: build(include, "include"),
		exclude: build(exclude, "exclude"),
	}, nil
}

// Keep reports whether name passes the filter. A non-empty include
// list requires membership; the exclude list forbids it. Comparison is
// case-insensitive.
func (f Filter) Keep(name string) bool {
	lower := strings.ToLower(name)
	if len(f.include) > 0 && !f.include[lower] {
		return false
	}
	if f.exclude[lower] {
		return false
	}
	return true
}

// Empty reports whether the filter has no include or exclude entries.
func (f Filter) Empty() bool {
	return len(f.include) == 0 && len(f.exclude) == 0
}
