package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Flows []Descriptor `toml:"flows" yaml:"flows"`
}

// LoadCatalog 读取 flow 目录文件。.yaml/.yml 按 YAML 解析，其余按 TOML。
// 文件中的顺序即可选 flow 的顺序。
func LoadCatalog(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file catalogFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		err = toml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("parse flow catalog %s: %w", path, err)
	}
	for i, f := range file.Flows {
		if strings.TrimSpace(f.Identifier) == "" {
			return nil, fmt.Errorf("flow catalog %s: entry %d has no identifier", path, i)
		}
	}
	return file.Flows, nil
}

// Merge 按顺序合并多组 flow，identifier 重复时保留先出现的一项。
func Merge(groups ...[]Descriptor) []Descriptor {
	seen := map[string]bool{}
	var out []Descriptor
	for _, group := range groups {
		for _, f := range group {
			if seen[f.Identifier] {
				continue
			}
			seen[f.Identifier] = true
			out = append(out, f)
		}
	}
	return out
}
