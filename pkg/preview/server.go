package preview

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-webcam/pkg/camera"
	"github.com/teslashibe/go-webcam/pkg/capture"
	"github.com/teslashibe/go-webcam/pkg/hub"
)

// Status is the payload of GET /api/status.
type Status struct {
	WorkerID  string         `json:"worker_id"`
	Capture   capture.Stats  `json:"capture"`
	Presenter PresenterStats `json:"presenter"`
	Viewers   int            `json:"viewers"`
	Error     string         `json:"error,omitempty"`
}

// Server is the preview dashboard
type Server struct {
	app       *fiber.App
	cfg       Config
	worker    *capture.Worker
	presenter *Presenter
	camera    *camera.Manager
	frames    *hub.Hub
	logger    *slog.Logger

	// ctx bounds websocket clients; set by Serve.
	ctx context.Context
}

// NewServer creates the dashboard. frames is the hub the presenter
// broadcasts to.
func NewServer(cfg Config, w *capture.Worker, p *Presenter, cam *camera.Manager, frames *hub.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		worker:    w,
		presenter: p,
		camera:    cam,
		frames:    frames,
		logger:    logger.With("component", "preview"),
		ctx:       context.Background(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Webcam Preview",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/camera", s.handleCamera)
	api.Get("/presets", s.handlePresets)
	api.Get("/frame.jpg", s.handleFrame)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))

	s.app = app
	return s
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured port and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the frame hub and serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ctx = ctx
	go s.frames.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()
	s.logger.Info("preview dashboard listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString(indexHTML)
}

// handleStatus returns worker and presenter statistics
func (s *Server) handleStatus(c *fiber.Ctx) error {
	st := Status{
		WorkerID:  s.worker.ID(),
		Capture:   s.worker.Stats(),
		Presenter: s.presenter.Stats(),
		Viewers:   s.frames.ClientCount(),
	}
	if err := s.worker.Err(); err != nil {
		st.Error = err.Error()
	}
	return c.JSON(st)
}

// handleCamera returns the active camera configuration
func (s *Server) handleCamera(c *fiber.Ctx) error {
	return c.JSON(s.camera.GetConfigJSON())
}

func (s *Server) handlePresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"presets":      camera.PresetNames(),
		"capabilities": camera.Capabilities(),
	})
}

// handleFrame serves the latest presented frame as JPEG
func (s *Server) handleFrame(c *fiber.Ctx) error {
	data, err := s.presenter.Snapshot()
	if errors.Is(err, ErrNoFrame) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(data)
}

func (s *Server) handleFramesWS(c *websocket.Conn) {
	hub.NewClient(s.frames, c).Run(s.ctx)
}

const indexHTML = `<!doctype html>
<html>
<head><title>Webcam Preview</title></head>
<body style="background:#111;color:#ddd;font-family:monospace">
<img id="frame" style="max-width:100%">
<pre id="status"></pre>
<script>
const img = document.getElementById("frame");
const ws = new WebSocket("ws://" + location.host + "/ws/frames");
ws.binaryType = "blob";
ws.onmessage = (e) => {
  const url = URL.createObjectURL(e.data);
  img.onload = () => URL.revokeObjectURL(url);
  img.src = url;
};
setInterval(async () => {
  const r = await fetch("/api/status");
  document.getElementById("status").textContent = JSON.stringify(await r.json(), null, 2);
}, 1000);
</script>
</body>
</html>
`
