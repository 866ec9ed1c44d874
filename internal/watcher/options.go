package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// DefaultSettleDelay is how long a file must stay unchanged before its
// change is reported.
const DefaultSettleDelay = 100 * time.Millisecond

// Options configures the watcher.
type Options struct {
	// IgnorePatterns are matched against base names. Nil selects the
	// editor scratch-file defaults; an empty slice ignores nothing.
	IgnorePatterns []string
	SettleDelay    time.Duration
	IgnoreHidden   bool
}

func (o *Options) setDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{"*.tmp", "*.swp", "*~", ".DS_Store"}
	}
}

func (o *Options) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if o.IgnoreHidden && strings.HasPrefix(base, ".") {
		return true
	}
	for _, pattern := range o.IgnorePatterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
