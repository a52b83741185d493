package catalog

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

var frontMatterRE = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n`)

// ParseFrontMatter 解析 markdown 开头 --- 之间的 key: value 行。
//
// 只做逐行解析：含冒号的行按第一个冒号切分，键去空白，
// 值去空白后再去掉两端的引号。没有 front matter 时返回空 map。
func ParseFrontMatter(content string) map[string]string {
	out := make(map[string]string)

	m := frontMatterRE.FindStringSubmatch(content)
	if m == nil {
		return out
	}

	for _, line := range strings.Split(m[1], "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return out
}

// ReadFrontMatter 读取文件的 front matter，文件不存在时返回空 map。
func ReadFrontMatter(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from marketplace entries
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return map[string]string{}, err
	}
	return ParseFrontMatter(string(data)), nil
}
