// Package server 提供文档实时预览的 HTTP 服务命令。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lwmacct/251207-go-pkg-version/pkg/version"
	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251220-go-pkg-docgen/internal/catalog"
	"github.com/lwmacct/251220-go-pkg-docgen/internal/command"
	"github.com/lwmacct/251220-go-pkg-docgen/internal/config"
	"github.com/lwmacct/251220-go-pkg-docgen/internal/generator"
	"github.com/lwmacct/251220-go-pkg-docgen/pkg/tmpl"
)

// Command 预览服务命令
var Command = &cli.Command{
	Name:   "serve",
	Usage:  "启动 HTTP 服务，按请求实时渲染文档",
	Action: action,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Value:   command.Defaults.Addr,
			Usage:   "服务器监听地址",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Value: command.Defaults.Timeout,
			Usage: "HTTP 读写超时",
		},
	},
}

func action(ctx context.Context, cmd *cli.Command) error {
	cfg, err := command.LoadConfig(cmd)
	if err != nil {
		return err
	}

	gen := newGenerator(cfg)
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewHandler(gen),
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}

	errCh := make(chan error, 1)
	// 启动服务器（非阻塞）
	go func() {
		slog.Info("Server starting", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-sigCtx.Done():
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("Server stopped gracefully")
	return nil
}

// newEngine 服务常驻运行，模板每次编辑都会产生新的文本，缓存解析结果只会不断增长。
func newEngine() *tmpl.Engine {
	return tmpl.NewEngine(tmpl.WithoutCache())
}

// newGenerator 每个请求都重新读取模板并重新解析
func newGenerator(cfg *config.Config) *generator.Generator {
	return generator.New(cfg, generator.WithEngine(newEngine()))
}

// NewHandler 返回预览服务的路由
//
//	GET /health       健康检查
//	GET /             文档列表
//	GET /docs/{name}  实时渲染的 markdown
func NewHandler(gen *generator.Generator) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// {$} 精确匹配根路径
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"app":  version.GetAppRawName(),
			"docs": gen.Docs(),
		})
	})

	mux.HandleFunc("GET /docs/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		content, err := gen.RenderDoc(name)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, generator.ErrUnknownDoc), errors.Is(err, generator.ErrTemplateNotFound):
				status = http.StatusNotFound
			case errors.Is(err, catalog.ErrMarketplaceNotFound):
				status = http.StatusServiceUnavailable
			}
			slog.Warn("Render failed", "doc", name, "error", err)
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = fmt.Fprint(w, content)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
