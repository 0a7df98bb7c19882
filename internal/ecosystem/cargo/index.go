package cargo

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"

	"depls/internal/ecosystem"
	"depls/internal/manifest"
)

// parseIndex decodes the newline-delimited JSON lines of a sparse index
// file into a newest-first version list.
func parseIndex(body []byte) ([]manifest.Version, error) {
	var versions []manifest.Version

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			return nil, fmt.Errorf("%w: bad index line", ecosystem.ErrParse)
		}
		entry := gjson.ParseBytes(line)
		vers := entry.Get("vers").String()
		if vers == "" {
			continue
		}
		versions = append(versions, manifest.Version{
			Value:      vers,
			Yanked:     entry.Get("yanked").Bool(),
			Prerelease: isPrerelease(vers),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ecosystem.ErrParse, err)
	}

	// Index files list versions in publish order, oldest first.
	for i, j := 0, len(versions)-1; i < j; i, j = i+1, j-1 {
		versions[i], versions[j] = versions[j], versions[i]
	}
	return versions, nil
}

func isPrerelease(v string) bool {
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	return parsed.Prerelease() != ""
}
