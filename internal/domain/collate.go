package domain

import (
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var (
	nameMu       sync.Mutex
	nameCollator = collate.New(language.Korean)
)

// CompareNames orders display names the way a Korean reader expects (가나다 order).
// collate.Collator keeps internal buffers, hence the lock.
func CompareNames(a, b string) int {
	nameMu.Lock()
	defer nameMu.Unlock()
	return nameCollator.CompareString(a, b)
}
