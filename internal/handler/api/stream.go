package api

import (
	"net/http"
	"sync"
	"time"

	"PortOpt/internal/domain/models"
	"PortOpt/internal/usecase"
	applogger "PortOpt/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const wsWriteTimeout = 5 * time.Second

// FrontierStreamHandler upgrades to a websocket, reads one OptimizeRequest
// from the client, and streams progress events while the run executes. A
// "done" event followed by a normal close marks completion.
type FrontierStreamHandler struct {
	logger   *applogger.Logger
	uc       *usecase.OptimizationUseCase
	defaults usecase.SolveDefaults
	upgrader websocket.Upgrader
}

func NewFrontierStreamHandler(logger *applogger.Logger, uc *usecase.OptimizationUseCase, defaults usecase.SolveDefaults) *FrontierStreamHandler {
	return &FrontierStreamHandler{
		logger:   logger,
		uc:       uc,
		defaults: defaults,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *FrontierStreamHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	var req models.OptimizeRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.logger.Warn("ws request read failed", applogger.Error(err))
		return nil
	}

	// Frontier workers report concurrently; serialize writes to the socket.
	var mu sync.Mutex
	send := func(ev models.FrontierProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Debug("ws write failed", applogger.Error(err))
		}
	}

	params, err := usecase.ParamsFromRequest(req, h.defaults)
	if err != nil {
		send(models.FrontierProgressEvent{Stage: "error", ErrorMsg: err.Error()})
		return nil
	}
	params.Observer = send

	if _, err := h.uc.Optimize(c.Request().Context(), params); err != nil {
		send(models.FrontierProgressEvent{Stage: "error", ErrorMsg: err.Error()})
		return nil
	}

	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}
