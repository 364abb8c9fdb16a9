package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/couchcryptid/storm-data-grid/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Client message types.
const (
	msgSetVariable  = "set_variable"
	msgSetTimestamp = "set_timestamp"
	msgStep         = "step"
	msgSelectRun    = "select_run"
	msgRender       = "render"
)

// Server message types.
const (
	msgState   = "state"
	msgRaster  = "raster"
	msgDropped = "dropped"
	msgError   = "error"
)

// clientMessage is a command sent by a viewer.
type clientMessage struct {
	Type      string    `json:"type"`
	Variable  string    `json:"variable,omitempty"`
	Time      time.Time `json:"time,omitempty"`
	Direction int       `json:"direction,omitempty"`
	// RunDate (YYYY-MM-DD) and Cycle pick a run for select_run; without
	// them the latest located run is selected.
	RunDate string `json:"run_date,omitempty"`
	Cycle   *int   `json:"cycle,omitempty"`
	// Render asks for a render after the command is applied.
	Render bool `json:"render,omitempty"`
}

type rasterMessage struct {
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	PNG          string            `json:"png"`
	Legend       domain.Legend     `json:"legend"`
	Run          string            `json:"run"`
	ForecastHour int               `json:"forecast_hour"`
	ValidTime    time.Time         `json:"valid_time"`
	Variable     string            `json:"variable"`
	Bounds       *domain.GeoBounds `json:"bounds,omitempty"`
}

type serverMessage struct {
	Type   string               `json:"type"`
	State  *domain.SessionState `json:"state,omitempty"`
	Raster *rasterMessage       `json:"raster,omitempty"`
	Error  *errorResponse       `json:"error,omitempty"`
}

// sessionSocket upgrades /v1/ws and drives one domain.Session per connection.
type sessionSocket struct {
	renderer Renderer
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func newSessionSocket(r Renderer, allowedOrigins []string, logger *slog.Logger) *sessionSocket {
	return &sessionSocket{
		renderer: r,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// Serve handles GET /v1/ws?model=<key>.
func (ws *sessionSocket) Serve(c *gin.Context) {
	model := c.Query("model")
	if model == "" {
		badRequest(c, "model is required")
		return
	}
	// Resolve the run before upgrading so failures surface as HTTP errors.
	s, err := ws.renderer.NewSession(c.Request.Context(), model)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := ws.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ws.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	cl := &wsClient{conn: conn, session: s, renderer: ws.renderer, logger: ws.logger.With("model", model)}
	defer func() {
		cancel()
		cl.wg.Wait()
		_ = conn.Close()
	}()

	cl.logger.Debug("websocket client connected")
	cl.sendState()
	cl.readLoop(ctx)
	cl.logger.Debug("websocket client disconnected")
}

type wsClient struct {
	conn     *websocket.Conn
	session  *domain.Session
	renderer Renderer
	logger   *slog.Logger

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

func (cl *wsClient) readLoop(ctx context.Context) {
	cl.conn.SetReadLimit(maxMessageSize)
	for {
		var msg clientMessage
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		cl.handle(ctx, msg)
	}
}

func (cl *wsClient) handle(ctx context.Context, msg clientMessage) {
	var cmd domain.Command
	switch msg.Type {
	case msgSetVariable:
		cmd = domain.SetVariable{Key: msg.Variable}
	case msgSetTimestamp:
		if msg.Time.IsZero() {
			cl.sendError(errors.New("set_timestamp requires time"))
			return
		}
		cmd = domain.SetTimestamp{Time: msg.Time.UTC()}
	case msgStep:
		if msg.Direction == 0 {
			cl.sendError(errors.New("step requires a non-zero direction"))
			return
		}
		cmd = domain.Step{Direction: msg.Direction}
	case msgSelectRun:
		run, err := cl.selectRun(msg)
		if err != nil {
			cl.sendError(err)
			return
		}
		cmd = domain.SelectRun{Run: run}
	case msgRender:
		cl.startRender(ctx)
		return
	default:
		cl.sendError(fmt.Errorf("unknown message type %q", msg.Type))
		return
	}

	if _, err := cl.session.Apply(cmd); err != nil {
		cl.sendError(err)
		return
	}
	cl.sendState()
	if msg.Render {
		cl.startRender(ctx)
	}
}

// selectRun resolves the run named by msg, or the latest located run.
func (cl *wsClient) selectRun(msg clientMessage) (domain.ModelRun, error) {
	if msg.RunDate == "" {
		model := cl.session.Model().Key
		run, ok := cl.renderer.LatestRun(model)
		if !ok {
			return domain.ModelRun{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, model)
		}
		return run, nil
	}
	date, err := time.Parse(time.DateOnly, msg.RunDate)
	if err != nil {
		return domain.ModelRun{}, fmt.Errorf("invalid run_date %q (expected YYYY-MM-DD)", msg.RunDate)
	}
	if msg.Cycle == nil || *msg.Cycle < 0 || *msg.Cycle > 23 {
		return domain.ModelRun{}, errors.New("select_run with run_date requires a cycle between 0 and 23")
	}
	return domain.NewModelRun(date, *msg.Cycle), nil
}

// startRender renders in the background so the read loop keeps accepting
// commands. A request made while another render is running is dropped.
func (cl *wsClient) startRender(ctx context.Context) {
	cl.wg.Add(1)
	go func() {
		defer cl.wg.Done()
		result, err := cl.renderer.Render(ctx, cl.session)
		switch {
		case errors.Is(err, domain.ErrRenderInProgress):
			cl.write(serverMessage{Type: msgDropped})
		case err != nil:
			if ctx.Err() == nil {
				cl.sendError(err)
			}
		default:
			cl.sendRaster(result)
		}
	}()
}

func (cl *wsClient) sendState() {
	state := cl.session.Snapshot()
	cl.write(serverMessage{Type: msgState, State: &state})
}

func (cl *wsClient) sendError(err error) {
	resp := newErrorResponse(err)
	cl.write(serverMessage{Type: msgError, Error: &resp})
}

func (cl *wsClient) sendRaster(result domain.RasterResult) {
	var buf bytes.Buffer
	if err := result.EncodePNG(&buf); err != nil {
		cl.sendError(fmt.Errorf("encode png: %w", err))
		return
	}
	msg := &rasterMessage{
		Width:        result.Width,
		Height:       result.Height,
		PNG:          base64.StdEncoding.EncodeToString(buf.Bytes()),
		Legend:       result.Legend,
		Run:          result.Run.String(),
		ForecastHour: result.ForecastHour,
		ValidTime:    result.Run.At(result.ForecastHour),
		Variable:     result.Variable,
		Bounds:       result.Bounds,
	}
	cl.write(serverMessage{Type: msgRaster, Raster: msg})
}

func (cl *wsClient) write(msg serverMessage) {
	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := cl.conn.WriteJSON(msg); err != nil {
		cl.logger.Debug("websocket write failed", "type", msg.Type, "error", err)
	}
}
