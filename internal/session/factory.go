package session

import "fmt"

// OpenStore builds the backend named by kind ("memory" or "badger").
func OpenStore(kind, path string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "badger":
		return OpenBadgerStore(path)
	default:
		return nil, fmt.Errorf("unknown session store %q", kind)
	}
}
