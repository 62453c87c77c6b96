package handlers

import (
	"net/http"

	"mechanical_shop/internal/cartsession"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SessionCartHandler serves device carts. The bearer token is optional: without
// one the device's guest cart is used.
type SessionCartHandler struct {
	carts *cartsession.Service
}

func NewSessionCartHandler(carts *cartsession.Service) *SessionCartHandler {
	return &SessionCartHandler{carts: carts}
}

type sessionCartView struct {
	cartsession.Cart
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

func (h *SessionCartHandler) caller(c *gin.Context) cartsession.Caller {
	return cartsession.Caller{DeviceID: c.Param("deviceId"), UserID: currentUserID(c)}
}

func (h *SessionCartHandler) respond(c *gin.Context, cart cartsession.Cart, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionCartView{Cart: cart, Total: cart.Total(), ItemCount: cart.Count()})
}

func (h *SessionCartHandler) Get(c *gin.Context) {
	cart, err := h.carts.Get(c.Request.Context(), h.caller(c))
	h.respond(c, cart, err)
}

func (h *SessionCartHandler) Add(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	cart, err := h.carts.AddItem(c.Request.Context(), h.caller(c), req.ProductID, req.Quantity)
	h.respond(c, cart, err)
}

func (h *SessionCartHandler) Update(c *gin.Context) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	cart, err := h.carts.SetQuantity(c.Request.Context(), h.caller(c), c.Param("productId"), req.Quantity)
	h.respond(c, cart, err)
}

func (h *SessionCartHandler) Remove(c *gin.Context) {
	cart, err := h.carts.RemoveItem(c.Request.Context(), h.caller(c), c.Param("productId"))
	h.respond(c, cart, err)
}

func (h *SessionCartHandler) Clear(c *gin.Context) {
	cart, err := h.carts.Clear(c.Request.Context(), h.caller(c))
	h.respond(c, cart, err)
}

// Switch makes the caller's identity the active cart on the device, parking the previous one.
func (h *SessionCartHandler) Switch(c *gin.Context) {
	cart, err := h.carts.Switch(c.Request.Context(), h.caller(c))
	h.respond(c, cart, err)
}
