package ws

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mvett/watchsync/internal/app"
	"github.com/mvett/watchsync/internal/config"
	"github.com/mvett/watchsync/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Hub *app.Hub
	Cfg *config.Config
}

func NewController(hub *app.Hub, cfg *config.Config) *Controller {
	return &Controller{Hub: hub, Cfg: cfg}
}

// HandleSession upgrades the request and binds the connection to the
// session named in the path. The principal was established upstream;
// here we only read it off the cookie session.
func (ctl *Controller) HandleSession(ctx context.Context, c *gin.Context) {
	key := domain.SessionKey(c.Param("key"))
	if key == "" {
		c.Status(http.StatusNotFound)
		return
	}

	name, _ := sessions.Default(c).Get("name").(string)
	if name == "" {
		name = "guest"
	}
	viewer := domain.Viewer{
		ID:   domain.ViewerID(c.GetString("client_token")),
		Name: name,
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}

	conn := newWSConn(ws, ctl.Cfg.SendBuffer)
	ctx, cancel := context.WithCancel(ctx)
	id := ctl.Hub.Join(key, viewer, conn, cancel)
	log.Info().Str("module", "adapters.ws").Str("key", string(key)).
		Str("conn", string(id)).Str("viewer", viewer.Name).Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, id, conn)
}
