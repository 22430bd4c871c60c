package ipheader

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownField is returned when selecting a key that is not in the catalog.
var ErrUnknownField = errors.New("unknown header field")

// Inspector tracks which header field is selected. It is safe for
// concurrent use.
type Inspector struct {
	mu       sync.RWMutex
	selected string
}

// NewInspector returns an inspector with DefaultField selected.
func NewInspector() *Inspector {
	return &Inspector{selected: DefaultField}
}

// Selected returns the currently selected field.
func (i *Inspector) Selected() Field {
	i.mu.RLock()
	defer i.mu.RUnlock()
	f, _ := Lookup(i.selected)
	return f
}

// Select makes key the current field. On error the selection is unchanged.
func (i *Inspector) Select(key string) (Field, error) {
	f, ok := Lookup(key)
	if !ok {
		return Field{}, fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	i.mu.Lock()
	i.selected = key
	i.mu.Unlock()
	return f, nil
}
