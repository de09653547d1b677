package socket_io

import (
	"time"

	game_constants "Scorekeep/constants/game"
	"Scorekeep/services/socket_io/handlers"
	socketio_types "Scorekeep/services/socket_io/types"
	socketio_utils "Scorekeep/services/socket_io/utils"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

type Options struct {
	JWTSecret       string
	RequireAuth     bool
	PingInterval    time.Duration
	PingTimeout     time.Duration
	ResponseTimeout time.Duration
	CorsOrigin      string
	Debug           bool
}

type MySocketServer socketio_types.SocketServer

// Start mounts the socket.io endpoints on router. The registry must be the
// one the orchestrator notifies through.
func (sio *MySocketServer) Start(router *gin.Engine, responder handlers.InvitationResponder, opts Options) {
	log.DEBUG = opts.Debug
	if opts.PingInterval <= 0 {
		opts.PingInterval = 5 * time.Second
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 3 * time.Second
	}
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = 10 * time.Second
	}
	if opts.CorsOrigin == "" {
		opts.CorsOrigin = "*"
	}

	c := socket.DefaultServerOptions()
	c.SetServeClient(false)
	c.SetPingInterval(opts.PingInterval)
	c.SetPingTimeout(opts.PingTimeout)
	c.SetMaxHttpBufferSize(1000000)
	c.SetConnectTimeout(10 * time.Second)
	c.SetTransports(types.NewSet("polling", "websocket"))
	c.SetCors(&types.Cors{
		Origin:      opts.CorsOrigin,
		Credentials: true,
	})

	if sio.Registry == nil {
		sio.Registry = socketio_types.NewRegistry()
	}
	registry := sio.Registry

	sio.Sio_server = socket.NewServer(nil, nil)
	sio.Sio_server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)

		authUserID, ok := socketio_utils.VerifyUserConnection(client, opts.JWTSecret, opts.RequireAuth)
		if !ok {
			client.Disconnect(true)
			return
		}
		conn := socketio_types.WrapSocket(client)
		state := handlers.NewConnState(authUserID)
		zap.S().Debugf("[SOCKET] connection %s (authenticated user %d)", conn.ID(), authUserID)

		client.On(game_constants.EventUserLogin, handlers.HandleUserLogin(conn, state, registry))

		client.On(game_constants.EventRespondToInvitation,
			handlers.HandleRespondToInvitation(conn, state, responder, opts.ResponseTimeout))

		client.On("disconnect", handlers.HandleDisconnecting(conn, state, registry))
	})

	handler := sio.Sio_server.ServeHandler(c)
	router.POST("/socket.io/*f", gin.WrapH(handler))
	router.GET("/socket.io/*f", gin.WrapH(handler))

	zap.S().Info("Socket server started")
}

func (sio *MySocketServer) Close() {
	if sio.Sio_server != nil {
		sio.Sio_server.Close(nil)
	}
}
