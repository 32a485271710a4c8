// Package main 提供持久化节点集合与封禁列表的离线管理工具
//
// 用法：
//
//	peerbook [-data-dir DIR] [-config FILE] [-log FILE] <命令> [参数]
//
// 命令：
//
//	list                 列出持久化节点（按最后观察时间从新到旧）
//	stats                显示持久化节点统计
//	prune -max N         只保留最新的 N 个节点
//	ban <addr> [reason]  永久封禁地址
//	unban <addr>         解除封禁
//	bans                 列出永久封禁
//
// 工具直接打开数据目录中的 BadgerDB，运行期间节点进程必须停止。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/banlist"
	"github.com/dep2p/go-overlay/internal/core/peerbook"
	"github.com/dep2p/go-overlay/internal/core/storage"
	"github.com/dep2p/go-overlay/pkg/lib/log"
	"github.com/dep2p/go-overlay/pkg/types"
)

var logger = log.Logger("cmd/peerbook")

// errUsage 参数错误
var errUsage = errors.New("usage")

// readOnlyCommands 以只读方式打开数据库的命令
var readOnlyCommands = map[string]bool{
	"list":  true,
	"stats": true,
	"bans":  true,
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "用法: peerbook [-data-dir DIR] [-config FILE] [-log FILE] <list|stats|prune|ban|unban|bans> [参数]")
}

// run 解析参数并执行命令
func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("peerbook", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dataDir := fs.String("data-dir", "", "数据目录（默认取配置文件或 ./data）")
	configFile := fs.String("config", "", "配置文件路径")
	logFile := fs.String("log", "", "日志文件路径")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	closeLog, err := setupLogging(*logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := config.NewConfig()
	if *configFile != "" {
		if cfg, err = config.LoadFile(*configFile); err != nil {
			return fmt.Errorf("加载配置文件失败: %w", err)
		}
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if err := cfg.Storage.Validate(); err != nil {
		return err
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]

	// 只读命令不获取写锁
	scfg := storage.ConfigFromUnified(cfg)
	scfg.ReadOnly = readOnlyCommands[cmd]
	eng, err := storage.Open(scfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			logger.Warn("关闭存储失败", "error", cerr)
		}
	}()

	book := peerbook.New(eng)
	bans := banlist.New(cfg.BanList.MaxTemporary,
		banlist.WithStore(eng),
		banlist.WithMaxDuration(cfg.BanList.MaxTemporaryDuration.Duration()))

	logger.Debug("执行命令", "cmd", cmd, "dataDir", cfg.Storage.DataDir)

	switch cmd {
	case "list":
		return listPeers(ctx, book, out)
	case "stats":
		return printStats(ctx, book, out)
	case "prune":
		return prunePeers(ctx, book, rest, out)
	case "ban":
		return banAddress(bans, rest, out)
	case "unban":
		return unbanAddress(bans, rest, out)
	case "bans":
		return listBans(bans, out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// setupLogging 命令行工具默认只输出警告，指定日志文件时输出全部信息
func setupLogging(path string) (func(), error) {
	if path == "" {
		log.SetLevel(log.LevelWarn)
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %w", err)
	}
	log.SetOutputWithLevel(f, log.LevelDebug)
	return func() {
		log.SetOutput(os.Stderr)
		_ = f.Close()
	}, nil
}

func listPeers(ctx context.Context, book *peerbook.Store, out io.Writer) error {
	peers, err := book.Load(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tFIRST SEEN\tLAST SEEN\tCONNECTIONS")
	for _, p := range peers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
			p.Address(),
			p.FirstSeen.Format(time.RFC3339),
			p.LastSeen.Format(time.RFC3339),
			p.Load.NumConnections)
	}
	return tw.Flush()
}

func printStats(ctx context.Context, book *peerbook.Store, out io.Writer) error {
	st, err := book.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "peers:  %d\n", st.Count)
	if st.Corrupt > 0 {
		fmt.Fprintf(out, "corrupt: %d\n", st.Corrupt)
	}
	if st.Count > 0 {
		fmt.Fprintf(out, "newest: %s\n", st.Newest.Format(time.RFC3339))
		fmt.Fprintf(out, "oldest: %s\n", st.Oldest.Format(time.RFC3339))
	}
	return nil
}

func prunePeers(ctx context.Context, book *peerbook.Store, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	keep := fs.Int("max", -1, "保留的节点数")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *keep < 0 {
		return fmt.Errorf("%w: prune requires -max N", errUsage)
	}
	n, err := book.Prune(ctx, *keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "pruned %d peers\n", n)
	return nil
}

func banAddress(bans *banlist.BanList, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: ban requires an address", errUsage)
	}
	addr, err := types.ParseAddress(args[0])
	if err != nil {
		return err
	}
	reason := strings.Join(args[1:], " ")
	if reason == "" {
		reason = "manual"
	}
	if err := bans.Ban(addr, reason); err != nil {
		return err
	}
	fmt.Fprintf(out, "banned %s\n", addr)
	return nil
}

func unbanAddress(bans *banlist.BanList, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: unban requires an address", errUsage)
	}
	addr, err := types.ParseAddress(args[0])
	if err != nil {
		return err
	}
	if err := bans.Unban(addr); err != nil {
		return err
	}
	fmt.Fprintf(out, "unbanned %s\n", addr)
	return nil
}

func listBans(bans *banlist.BanList, out io.Writer) error {
	if err := bans.Load(); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tSINCE\tREASON")
	for _, e := range bans.List() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Address, e.Since.Format(time.RFC3339), e.Reason)
	}
	return tw.Flush()
}
