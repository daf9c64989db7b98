package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/safar/go-logistics/internal/models"
	"github.com/safar/go-logistics/internal/shipping"
)

type shipmentHandler struct {
	svc ShipmentService
}

type createShipmentBody struct {
	CustomerID   int64            `json:"customer_id" binding:"required"`
	ProductID    int64            `json:"product_id" binding:"required"`
	Quantity     int              `json:"quantity"`
	RegisteredOn *models.Date     `json:"registered_on" binding:"required"`
	DeliveredOn  *models.Date     `json:"delivered_on" binding:"required"`
	BasePrice    *decimal.Decimal `json:"base_price" binding:"required"`
	TrackingCode string           `json:"tracking_code"`
	Mode         string           `json:"mode" binding:"required"`

	WarehouseID  *int64  `json:"warehouse_id"`
	VehiclePlate *string `json:"vehicle_plate"`
	PortID       *int64  `json:"port_id"`
	FleetCode    *string `json:"fleet_code"`
}

type updateShipmentBody struct {
	Mode         *string          `json:"mode"`
	Quantity     *int             `json:"quantity"`
	RegisteredOn *models.Date     `json:"registered_on"`
	DeliveredOn  *models.Date     `json:"delivered_on"`
	BasePrice    *decimal.Decimal `json:"base_price"`
	TrackingCode *string          `json:"tracking_code"`

	WarehouseID  *int64  `json:"warehouse_id"`
	VehiclePlate *string `json:"vehicle_plate"`
	PortID       *int64  `json:"port_id"`
	FleetCode    *string `json:"fleet_code"`
}

type quoteBody struct {
	Quantity  int              `json:"quantity" binding:"required,gt=0"`
	Mode      string           `json:"mode" binding:"required,shipmode"`
	BasePrice *decimal.Decimal `json:"base_price" binding:"required"`
}

type quoteResponse struct {
	Mode       models.Mode `json:"mode"`
	Quantity   int         `json:"quantity"`
	BasePrice  string      `json:"base_price"`
	Rate       string      `json:"discount_rate"`
	Discount   string      `json:"discount"`
	FinalPrice string      `json:"final_price"`
}

type shipmentQuery struct {
	pageQuery
	Q          string `form:"q"`
	CustomerID int64  `form:"customer_id" binding:"omitempty,min=1"`
	ProductID  int64  `form:"product_id" binding:"omitempty,min=1"`
	Mode       string `form:"mode" binding:"omitempty,shipmode"`
}

// parseMode keeps unknown values verbatim so the service reports them.
func parseMode(raw string) models.Mode {
	if m, err := models.ParseMode(raw); err == nil {
		return m
	}
	return models.Mode(raw)
}

func (h *shipmentHandler) create(c *gin.Context) {
	var b createShipmentBody
	if err := bindJSON(c, &b); err != nil {
		abortWithError(c, err)
		return
	}
	s, err := h.svc.Create(c.Request.Context(), shipping.CreateRequest{
		CustomerID:   b.CustomerID,
		ProductID:    b.ProductID,
		Quantity:     b.Quantity,
		RegisteredOn: *b.RegisteredOn,
		DeliveredOn:  *b.DeliveredOn,
		BasePrice:    *b.BasePrice,
		TrackingCode: b.TrackingCode,
		Mode:         parseMode(b.Mode),
		WarehouseID:  b.WarehouseID,
		VehiclePlate: b.VehiclePlate,
		PortID:       b.PortID,
		FleetCode:    b.FleetCode,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *shipmentHandler) update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	var b updateShipmentBody
	if err := bindJSON(c, &b); err != nil {
		abortWithError(c, err)
		return
	}
	req := shipping.UpdateRequest{
		Quantity:     b.Quantity,
		RegisteredOn: b.RegisteredOn,
		DeliveredOn:  b.DeliveredOn,
		BasePrice:    b.BasePrice,
		TrackingCode: b.TrackingCode,
		WarehouseID:  b.WarehouseID,
		VehiclePlate: b.VehiclePlate,
		PortID:       b.PortID,
		FleetCode:    b.FleetCode,
	}
	if b.Mode != nil {
		m := parseMode(*b.Mode)
		req.Mode = &m
	}
	s, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *shipmentHandler) delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *shipmentHandler) get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	s, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *shipmentHandler) list(c *gin.Context) {
	var q shipmentQuery
	if err := bindQuery(c, &q); err != nil {
		abortWithError(c, err)
		return
	}
	f := models.ShipmentFilter{Query: q.Q, CustomerID: q.CustomerID, ProductID: q.ProductID}
	if q.Mode != "" {
		f.Mode = parseMode(q.Mode)
	}
	page, err := h.svc.List(c.Request.Context(), f, q.request())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *shipmentHandler) quote(c *gin.Context) {
	var b quoteBody
	if err := bindJSON(c, &b); err != nil {
		abortWithError(c, err)
		return
	}
	mode := parseMode(b.Mode)
	breakdown, err := h.svc.Quote(c.Request.Context(), shipping.QuoteRequest{
		Quantity:  b.Quantity,
		Mode:      mode,
		BasePrice: *b.BasePrice,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteResponse{
		Mode:       mode,
		Quantity:   b.Quantity,
		BasePrice:  breakdown.Base.StringFixed(2),
		Rate:       breakdown.Rate.StringFixed(2),
		Discount:   breakdown.Discount.StringFixed(2),
		FinalPrice: breakdown.Final.StringFixed(2),
	})
}
