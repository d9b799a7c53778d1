package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"gopkg.in/yaml.v3"

	"github.com/threadboard/threadboard/board"
	"github.com/threadboard/threadboard/prefs"
)

const BoardCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

type BoardCtlConfig struct {
	LiveUrl   string `yaml:"live_url"`
	ApiUrl    string `yaml:"api_url"`
	PrefsPath string `yaml:"prefs_path"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "boardctl", "config.yaml")
}

func loadConfig(path string) *BoardCtlConfig {
	config := &BoardCtlConfig{}
	if path == "" {
		path = defaultConfigPath()
	}
	if path == "" {
		return config
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		Err.Printf("Ignoring bad config %s (%s).", path, err)
		return &BoardCtlConfig{}
	}
	return config
}

func (self *BoardCtlConfig) prefsPath() string {
	if self.PrefsPath != "" {
		return self.PrefsPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "boardctl", "prefs.db")
}

func main() {
	usage := `Board control.

Usage:
    boardctl tail [--live_url=<live_url>] [--api_url=<api_url>]
        [--jwt=<jwt>]
        [--config=<config>]
    boardctl load <archive> [--config=<config>]
    boardctl show <id> --archive=<archive> [--config=<config>]
    boardctl recent [--config=<config>]

Options:
    -h --help              Show this screen.
    --version              Show version.
    --live_url=<live_url>  Websocket event stream url.
    --api_url=<api_url>    Mutation api url.
    --jwt=<jwt>            Your session JWT.
    --archive=<archive>    Archive file or url.
    --config=<config>      Config file (default ~/.config/boardctl/config.yaml).`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], BoardCtlVersion)
	if err != nil {
		panic(err)
	}

	configPath, _ := opts.String("--config")
	config := loadConfig(configPath)

	if tail_, _ := opts.Bool("tail"); tail_ {
		tail(opts, config)
	} else if load_, _ := opts.Bool("load"); load_ {
		load(opts, config)
	} else if show_, _ := opts.Bool("show"); show_ {
		show(opts, config)
	} else if recent_, _ := opts.Bool("recent"); recent_ {
		recent(config)
	}
}

// stream the live board to stdout
func tail(opts docopt.Opts, config *BoardCtlConfig) {
	liveUrl, _ := opts.String("--live_url")
	if liveUrl == "" {
		liveUrl = config.LiveUrl
	}
	if liveUrl == "" {
		Err.Fatal("Missing --live_url.")
	}
	apiUrl, _ := opts.String("--api_url")
	if apiUrl == "" {
		apiUrl = config.ApiUrl
	}
	jwt, _ := opts.String("--jwt")

	cancelCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var auth *board.SessionAuth
	if jwt != "" {
		auth = &board.SessionAuth{
			ByJwt:      jwt,
			AppVersion: fmt.Sprintf("boardctl %s", BoardCtlVersion),
		}
		if token, err := board.ParseSessionTokenUnverified(jwt); err == nil {
			Out.Printf("session user=%s board=%s", token.UserId, token.BoardId)
		}
	}

	b := board.NewBoardLive(cancelCtx, liveUrl, apiUrl, auth, board.DefaultBoardSettings())
	defer b.Close()

	touchRecent(config, liveUrl, string(board.ModeLive))

	b.Registry().Subscribe(board.PathConnectionStatus, func(path string, value any) {
		Out.Printf("[%s] %v", path, value)
	})
	b.Registry().Subscribe(board.PathEntitiesWildcard, func(path string, value any) {
		if nodes, ok := value.([]*board.Node); ok {
			Out.Printf("[%s] %d nodes", path, len(nodes))
			return
		}
		if edges, ok := value.([]*board.Edge); ok {
			Out.Printf("[%s] %d edges", path, len(edges))
			return
		}
		Out.Printf("[%s] updated", path)
	})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigs:
	case <-cancelCtx.Done():
	}
}

// print an archive summary
func load(opts docopt.Opts, config *BoardCtlConfig) {
	path, _ := opts.String("<archive>")

	f, err := os.Open(path)
	if err != nil {
		Err.Fatalf("Cannot open archive (%s).", err)
	}
	defer f.Close()

	snapshot, err := board.ParseArchive(f)
	if err != nil {
		Err.Fatalf("Cannot parse archive (%s).", err)
	}

	touchRecent(config, path, string(board.ModeArchive))

	counts := map[board.NodeType]int{}
	for _, node := range snapshot.Nodes {
		counts[node.Type] += 1
	}
	Out.Printf("%d nodes, %d edges", len(snapshot.Nodes), len(snapshot.Edges))
	for _, nodeType := range board.NodeTypes {
		if count := counts[nodeType]; 0 < count {
			Out.Printf("  %-10s %d", nodeType, count)
		}
	}
}

// print one node with its relationships
func show(opts docopt.Opts, config *BoardCtlConfig) {
	id, _ := opts.String("<id>")
	archive, _ := opts.String("--archive")

	cancelCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var b *board.Board
	var err error
	if board.IsArchivePath(archive) {
		b, err = board.NewBoardArchiveFile(cancelCtx, archive, board.DefaultBoardSettings())
	} else {
		b, err = board.NewBoardArchiveUrl(cancelCtx, archive, "", board.DefaultBoardSettings())
	}
	if err != nil {
		Err.Fatalf("Cannot load archive (%s).", err)
	}
	defer b.Close()

	view, err := b.Store().NodeWithEdges(id)
	if err != nil {
		Err.Fatalf("Unknown node %s (%s).", id, err)
	}

	Out.Printf("%s [%s] %s", view.Node.Id, view.Node.Type, view.Node.Title)
	Out.Printf("  status: %s", view.Node.Status)
	if view.Node.Assignee != "" {
		Out.Printf("  assignee: %s", view.Node.Assignee)
	}
	for _, edgeRef := range view.Edges {
		arrow := "->"
		if edgeRef.Direction == board.EdgeDirectionIn {
			arrow = "<-"
		}
		Out.Printf("  %s %s %s", arrow, edgeRef.EdgeType, edgeRef.RelatedId)
	}
}

// list recently used connect targets
func recent(config *BoardCtlConfig) {
	path := config.prefsPath()
	if path == "" {
		Err.Fatal("Cannot resolve prefs path.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := prefs.Open(ctx, path)
	if err != nil {
		Err.Fatalf("Cannot open prefs (%s).", err)
	}
	defer store.Close()

	connections, err := store.RecentConnections(ctx)
	if err != nil {
		Err.Fatalf("Cannot list recent connections (%s).", err)
	}
	if len(connections) == 0 {
		Out.Printf("No recent connections.")
		return
	}
	for _, connection := range connections {
		label := connection.Label
		if label == "" {
			label = "-"
		}
		Out.Printf("%s  %-7s  %-24s  %s", connection.LastUsedAt.Local().Format("2006-01-02 15:04"), connection.Mode, label, connection.Url)
	}
}

// best effort, failures do not interrupt the command
func touchRecent(config *BoardCtlConfig, url string, mode string) {
	path := config.prefsPath()
	if path == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := prefs.Open(ctx, path)
	if err != nil {
		return
	}
	defer store.Close()
	store.TouchRecentConnection(ctx, url, mode, "")
}
