package cargo

import (
	"depls/internal/tomlscan"
)

// ResolveLocked reads the resolved version of a package from
// Cargo.lock text. The lock file is a TOML document of [[package]]
// entries with name and version keys.
func (a *Adapter) ResolveLocked(lockText, name string) (string, bool) {
	src := []byte(lockText)
	tree, err := tomlscan.Parse(src)
	if err != nil {
		return "", false
	}
	defer tree.Close()

	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		entry := root.NamedChild(i)
		if entry.Type() != "table_array_element" || entry.NamedChildCount() == 0 {
			continue
		}
		if tomlscan.KeyText(entry.NamedChild(0), src) != "package" {
			continue
		}

		var entryName, entryVersion string
		for _, pair := range tomlscan.Pairs(entry) {
			key, value := tomlscan.PairParts(pair)
			if key == nil || value == nil || value.Type() != "string" {
				continue
			}
			switch tomlscan.KeyText(key, src) {
			case "name":
				entryName = tomlscan.Unquote(value.Content(src))
			case "version":
				entryVersion = tomlscan.Unquote(value.Content(src))
			}
		}
		if entryName == name && entryVersion != "" {
			return entryVersion, true
		}
	}
	return "", false
}
