// Package httpapi exposes the REST façade over HTTP, grounded on the
// teacher's api package: one gin.RouterGroup registration function per
// resource, swag annotations for the generated swagger doc.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/BullionBear/marketfeed/internal/marketdata"
	"github.com/BullionBear/marketfeed/internal/marketerr"
	"github.com/BullionBear/marketfeed/internal/rest"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Venues resolves a venue.Exchange to its REST connector. The caller
// wires every configured venue in at startup.
type Venues map[venue.Exchange]rest.Connector

// AuditRecorder persists a successful AddOrder call. internal/orderlog.Store
// implements this; a nil recorder passed to New disables the audit write.
type AuditRecorder interface {
	Record(exchange venue.Exchange, info rest.OrderInfo) error
}

type api struct {
	venues Venues
	audit  AuditRecorder
}

// New registers the market-data and trading routes under rg. audit may be
// nil, in which case successful orders are not recorded anywhere.
func New(rg *gin.RouterGroup, venues Venues, audit AuditRecorder) {
	a := &api{venues: venues, audit: audit}
	rg.GET("/:exchange/ticker/:pair", a.getTicker)
	rg.GET("/:exchange/orderbook/:pair", a.getOrderbook)
	rg.POST("/:exchange/order", a.postOrder)
	rg.GET("/:exchange/balances", a.getBalances)
}

func (a *api) connector(c *gin.Context) (rest.Connector, bool) {
	conn, ok := a.venues[venue.Exchange(c.Param("exchange"))]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "exchange not configured"})
		return nil, false
	}
	return conn, true
}

// AllowAllCors is a permissive CORS middleware for local development,
// matching the teacher's router-level CORS hook.
func AllowAllCors(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

func writeErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var merr *marketerr.Error
	if errors.As(err, &merr) {
		switch merr.Kind {
		case marketerr.KindPairUnsupported, marketerr.KindInvalidArguments, marketerr.KindMissingPrice, marketerr.KindMissingField:
			status = http.StatusBadRequest
		case marketerr.KindBadCredentials:
			status = http.StatusUnauthorized
		}
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// @Summary Get the best bid/ask ticker
// @Accept json
// @Produce json
// @Success 200 {object} marketdata.Ticker
// @Router /{exchange}/ticker/{pair} [get]
func (a *api) getTicker(c *gin.Context) {
	conn, ok := a.connector(c)
	if !ok {
		return
	}
	ticker, err := conn.Ticker(c.Request.Context(), venue.Pair(c.Param("pair")))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ticker)
}

// @Summary Get a snapshot order book
// @Accept json
// @Produce json
// @Success 200 {object} marketdata.Orderbook
// @Router /{exchange}/orderbook/{pair} [get]
func (a *api) getOrderbook(c *gin.Context) {
	conn, ok := a.connector(c)
	if !ok {
		return
	}
	ob, err := conn.Orderbook(c.Request.Context(), venue.Pair(c.Param("pair")))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ob)
}

// PostOrderRequest is the AddOrder request body.
type PostOrderRequest struct {
	Pair     string  `json:"pair" binding:"required"`
	Type     string  `json:"type" binding:"required"`
	Quantity string  `json:"quantity" binding:"required"`
	Price    *string `json:"price,omitempty"`
}

// @Summary Place an order
// @Accept json
// @Produce json
// @Success 200 {object} rest.OrderInfo
// @Router /{exchange}/order [post]
func (a *api) postOrder(c *gin.Context) {
	conn, ok := a.connector(c)
	if !ok {
		return
	}
	var req PostOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quantity"})
		return
	}
	var price *decimal.Decimal
	if req.Price != nil {
		p, err := decimal.NewFromString(*req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		price = &p
	}

	exchange := venue.Exchange(c.Param("exchange"))
	info, err := conn.AddOrder(c.Request.Context(), marketdata.OrderType(req.Type), venue.Pair(req.Pair), quantity, price)
	if err != nil {
		writeErr(c, err)
		return
	}
	if a.audit != nil {
		// An audit-write failure doesn't undo the placed order; surface it
		// on the gin error chain rather than failing the response.
		if err := a.audit.Record(exchange, info); err != nil {
			c.Error(err)
		}
	}
	c.JSON(http.StatusOK, info)
}

// @Summary Get account balances
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Router /{exchange}/balances [get]
func (a *api) getBalances(c *gin.Context) {
	conn, ok := a.connector(c)
	if !ok {
		return
	}
	balances, err := conn.Balances(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	out := make(map[string]string, len(balances))
	for currency, amount := range balances {
		out[string(currency)] = amount.String()
	}
	c.JSON(http.StatusOK, out)
}
