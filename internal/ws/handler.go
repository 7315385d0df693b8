package ws

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"invest-service/internal/service/profit"
	pkgAuth "invest-service/pkg/auth"
	"invest-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler struct {
	profitSvc *profit.Service
}

func NewHandler(profitSvc *profit.Service) *Handler {
	return &Handler{profitSvc: profitSvc}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// HandleAdminFeed streams distribution batch results to an admin dashboard.
// Each message is the JSON summary the distributor publishes after a run.
func (h *Handler) HandleAdminFeed(c *gin.Context) {
	token, err := getTokenFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	claims, err := pkgAuth.ParseAdminToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	sub := h.profitSvc.SubscribeBatches(c.Request.Context())
	if sub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event feed unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New admin feed connection", zap.Int64("adminID", claims.SubjectID))

	client := newClient(conn, claims.SubjectID, sub)
	client.run()
}

func getTokenFromRequest(c *gin.Context) (string, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token != "" {
		return token, nil
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
			if token != "" {
				return token, nil
			}
		}
	}
	return "", errors.New("missing token")
}

type client struct {
	conn      *websocket.Conn
	adminID   int64
	sub       *redis.PubSub
	done      chan struct{}
	pingEvery time.Duration
}

func newClient(conn *websocket.Conn, adminID int64, sub *redis.PubSub) *client {
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	return &client{
		conn:      conn,
		adminID:   adminID,
		sub:       sub,
		done:      make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

// readPump only watches for close; the feed is one-way.
func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.sub.Close()
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.Int64("adminID", c.adminID))
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	events := c.sub.Channel()
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.Int64("adminID", c.adminID))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
