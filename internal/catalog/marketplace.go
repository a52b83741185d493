// Package catalog 读取插件市场数据并构建文档模板上下文。
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/lwmacct/251220-go-pkg-docgen/pkg/tmpl"
)

// ErrMarketplaceNotFound marketplace 文件不存在
var ErrMarketplaceNotFound = errors.New("marketplace not found")

// LoadMarketplace 读取 marketplace.json，保持文件中的键顺序。
func LoadMarketplace(path string) (*tmpl.Map, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMarketplaceNotFound, path)
		}
		return nil, fmt.Errorf("read marketplace %s: %w", path, err)
	}

	v, err := tmpl.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse marketplace %s: %w", path, err)
	}

	m, ok := v.(*tmpl.Map)
	if !ok {
		return nil, fmt.Errorf("parse marketplace %s: root must be an object", path)
	}
	return m, nil
}
