package generator

import (
	"context"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/providers/file"
)

// watchDebounce 合并编辑器保存时产生的连续事件
const watchDebounce = 200 * time.Millisecond

// Watch 先生成一次文档，之后在 marketplace 或模板文件变化时重新生成，直到 ctx 结束。
//
// 重新生成的失败只记录日志，不会终止监听。
func (g *Generator) Watch(ctx context.Context, opts Options) error {
	if err := g.Generate(ctx, opts); err != nil {
		g.logger.Error("Initial generation failed", "error", err)
	}

	changed := make(chan struct{}, 1)
	notify := func(_ any, err error) {
		if err != nil {
			g.logger.Warn("Watch error", "error", err)
			return
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	var watched []*file.File
	defer func() {
		for _, f := range watched {
			_ = f.Unwatch()
		}
	}()

	for _, path := range g.watchPaths(opts) {
		f := file.Provider(path)
		if err := f.Watch(notify); err != nil {
			// 模板可能尚未创建，其余文件仍然监听
			g.logger.Warn("Cannot watch file", "path", path, "error", err)
			continue
		}
		watched = append(watched, f)
		g.logger.Debug("Watching", "path", path)
	}

	g.logger.Info("Watching for changes", "files", len(watched))

	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("Watch stopped")
			return nil
		case <-changed:
			timer = time.After(watchDebounce)
		case <-timer:
			timer = nil
			// 模板文本变化后旧的解析结果不再命中
			g.engine.ClearCache()
			if err := g.Generate(ctx, opts); err != nil {
				g.logger.Error("Regeneration failed", "error", err)
			}
		}
	}
}

func (g *Generator) watchPaths(opts Options) []string {
	docs := g.cfg.Docs
	if opts.Only != "" {
		docs = []string{opts.Only}
	}
	paths := []string{g.cfg.Marketplace}
	for _, doc := range docs {
		paths = append(paths, filepath.Join(g.cfg.Templates, doc+TemplateExt))
	}
	return paths
}
