package password

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Blacklist es un set inmutable de passwords prohibidos (lowercase).
type Blacklist struct {
	data map[string]struct{}
}

// LoadBlacklist lee un archivo con un password por línea (# comenta).
// Un path vacío retorna una blacklist vacía.
func LoadBlacklist(path string) (*Blacklist, error) {
	bl := &Blacklist{data: map[string]struct{}{}}
	if strings.TrimSpace(path) == "" {
		return bl, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(strings.ToLower(sc.Text()))
		if s != "" && !strings.HasPrefix(s, "#") {
			bl.data[s] = struct{}{}
		}
	}
	return bl, sc.Err()
}

// NewBlacklist construye una blacklist en memoria.
func NewBlacklist(words ...string) *Blacklist {
	bl := &Blacklist{data: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w = strings.TrimSpace(strings.ToLower(w)); w != "" {
			bl.data[w] = struct{}{}
		}
	}
	return bl
}

func (b *Blacklist) Contains(pwd string) bool {
	if b == nil {
		return false
	}
	_, ok := b.data[strings.ToLower(strings.TrimSpace(pwd))]
	return ok
}
