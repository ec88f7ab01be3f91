package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wayvil/wayvil/internal/actionlog"
	"github.com/wayvil/wayvil/internal/bridge"
)

const (
	ServerName    = "wayvil"
	ServerVersion = "0.1.0"
)

// Server is the MCP control plane. Tool handlers run on the SDK's request
// goroutines; they never touch compositor state directly, only the command
// queue and result slots.
type Server struct {
	mcpServer *mcpsdk.Server
	queue     *bridge.Queue
	logger    *actionlog.Logger
	artifacts *ArtifactStore
}

// NewServer creates the control plane around the compositor's command queue.
// logger may be nil.
func NewServer(queue *bridge.Queue, logger *actionlog.Logger) *Server {
	s := &Server{
		queue:     queue,
		logger:    logger,
		artifacts: NewArtifactStore(DefaultArtifactCapBytes),
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases server resources.
func (s *Server) Close() error {
	if s == nil || s.logger == nil {
		return nil
	}
	return s.logger.Close()
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "launch_app",
		Description: "Launch an application under the compositor. Blocks until the application has created and drawn its first window, then returns the window's surface id and the process pid. Fails if the executable cannot be started, the process exits without creating a window, or no window appears within the launch timeout (the process is left running in that case).",
	}, s.handleLaunchApp)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "screenshot",
		Description: "Capture a screenshot of the currently focused window as PNG. If the focused window has not drawn yet, waits for its first frame up to the capture timeout. Returns the PNG base64-encoded; pass filename to also save it to disk on the compositor host. Fails when no window exists.",
	}, s.handleScreenshot)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List all windows the compositor currently manages, in creation order, with their surface id, owning pid, size, readiness (has drawn at least one frame) and focus state.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "last_screenshot",
		Description: "Return the most recently captured screenshot without taking a new one. Screenshots are kept in memory only and the oldest are dropped when the cap is exceeded.",
	}, s.handleLastScreenshot)
}

// submit enqueues a command and waits for its result. Backpressure surfaces
// immediately; an abandoned wait (ctx cancelled) leaves the command to finish
// on its own.
func (s *Server) submit(ctx context.Context, cmd *bridge.Command) (bridge.Result, error) {
	if err := s.queue.Enqueue(cmd); err != nil {
		return bridge.Result{}, fmt.Errorf("compositor is busy: %w", err)
	}
	return cmd.Await(ctx)
}

func (s *Server) handleLaunchApp(ctx context.Context, _ *mcpsdk.CallToolRequest, args LaunchAppInput) (*mcpsdk.CallToolResult, LaunchAppOutput, error) {
	if args.Executable == "" {
		return nil, LaunchAppOutput{}, fmt.Errorf("executable must not be empty")
	}

	cmd := bridge.NewLaunchApp(args.Executable, args.Args)
	res, err := s.submit(ctx, cmd)
	if err != nil {
		return nil, LaunchAppOutput{}, err
	}
	if res.Err != nil {
		return nil, LaunchAppOutput{}, res.Err
	}

	return nil, LaunchAppOutput{
		SurfaceID: res.Spawned.SurfaceID,
		PID:       res.Spawned.PID,
	}, nil
}

func (s *Server) handleScreenshot(ctx context.Context, _ *mcpsdk.CallToolRequest, args ScreenshotInput) (*mcpsdk.CallToolResult, ScreenshotOutput, error) {
	cmd := bridge.NewScreenshot(args.Filename)
	res, err := s.submit(ctx, cmd)
	if err != nil {
		return nil, ScreenshotOutput{}, err
	}
	if res.Err != nil {
		return nil, ScreenshotOutput{}, res.Err
	}

	frame := res.Frame
	s.artifacts.Put(Artifact{
		Token:      cmd.Token,
		PNG:        frame.PNG,
		Width:      frame.Width,
		Height:     frame.Height,
		CapturedAt: time.Now(),
	})

	out := ScreenshotOutput{
		PNGBase64: base64.StdEncoding.EncodeToString(frame.PNG),
		Width:     frame.Width,
		Height:    frame.Height,
	}

	if args.Filename != "" {
		path, err := savePNG(args.Filename, frame.PNG)
		if err != nil {
			return nil, ScreenshotOutput{}, err
		}
		out.SavedTo = path
	}

	return nil, out, nil
}

func (s *Server) handleListWindows(ctx context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	cmd := bridge.NewListSurfaces()
	res, err := s.submit(ctx, cmd)
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	if res.Err != nil {
		return nil, ListWindowsOutput{}, res.Err
	}

	windows := make([]WindowInfo, 0, len(res.Surfaces))
	for _, sf := range res.Surfaces {
		windows = append(windows, WindowInfo{
			SurfaceID: sf.ID,
			PID:       sf.PID,
			Ready:     sf.Ready,
			Focused:   sf.Focused,
			Width:     sf.Width,
			Height:    sf.Height,
		})
	}
	return nil, ListWindowsOutput{Windows: windows}, nil
}

func (s *Server) handleLastScreenshot(_ context.Context, _ *mcpsdk.CallToolRequest, _ LastScreenshotInput) (*mcpsdk.CallToolResult, LastScreenshotOutput, error) {
	art, ok := s.artifacts.Latest()
	if !ok {
		return nil, LastScreenshotOutput{}, fmt.Errorf("no screenshot has been captured yet")
	}

	return nil, LastScreenshotOutput{
		PNGBase64:  base64.StdEncoding.EncodeToString(art.PNG),
		Width:      art.Width,
		Height:     art.Height,
		CapturedAt: art.CapturedAt.Format(time.RFC3339),
	}, nil
}

// savePNG writes the screenshot to disk, creating parent directories and
// resolving the final absolute path for the response.
func savePNG(filename string, data []byte) (string, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", filename, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", abs, err)
	}
	if err := os.WriteFile(abs, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return abs, nil
}
